package di

import (
	"context"
	"fmt"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	domsvc "StrikeGate/internal/domain/service"
	"StrikeGate/internal/handler/api"
	mid "StrikeGate/internal/middleware"
	internalrepo "StrikeGate/internal/repository"
	icache "StrikeGate/internal/service/cache"
	"StrikeGate/internal/service/marketfeed"
	"StrikeGate/internal/services/features"
	"StrikeGate/internal/services/levels"
	"StrikeGate/internal/services/oracle"
	"StrikeGate/internal/services/risk"
	"StrikeGate/internal/services/trend"
	"StrikeGate/internal/usecase"
	pkgcache "StrikeGate/pkg/cache"
	pkgch "StrikeGate/pkg/clickhouse"
	"StrikeGate/pkg/config"
	xhttp "StrikeGate/pkg/http"
	pkgkafka "StrikeGate/pkg/kafka"
	applogger "StrikeGate/pkg/logger"
	pkgmetrics "StrikeGate/pkg/metrics"
	pkgpg "StrikeGate/pkg/postgres"
	pkgqueue "StrikeGate/pkg/queue"
	"StrikeGate/pkg/server"
	"StrikeGate/pkg/util"
)

// ProvideLogger creates the structured logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideClickHouseClient creates the ClickHouse client for candle storage.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleRepository creates the ClickHouse candle repository and
// ensures its schema exists.
func ProvideCandleRepository(chClient *pkgch.Client, lgr *applogger.Logger) (*internalrepo.CHCandleStore, error) {
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideCandleStore exposes the repository's read side.
func ProvideCandleStore(store *internalrepo.CHCandleStore) domrepo.CandleStore { return store }

// ProvideCandleStorage exposes the repository's write side.
func ProvideCandleStorage(store *internalrepo.CHCandleStore) domrepo.CandleStorage { return store }

// ProvidePostgresClient creates the Postgres client backing the outcome ledger.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithAddr(cfg.Postgres.Host, cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpg.WithQueryLogging(cfg.Environment == "development"),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideOutcomeLedger creates the ledger repository and runs its migration.
func ProvideOutcomeLedger(pgClient *pkgpg.Client) (domrepo.OutcomeLedger, error) {
	ledger, err := internalrepo.NewPGOutcomeLedger(pgClient)
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// ProvideKafkaProducer creates the Kafka producer for decision publishing.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDecisionSink creates the Kafka decision publisher.
func ProvideDecisionSink(producer *pkgkafka.Producer, cfg *config.Config) domrepo.DecisionSink {
	return internalrepo.NewKafkaDecisionSink(producer, cfg.Kafka.DecisionsTopic)
}

// ProvideKafkaConsumer creates the consumer for execution-platform fills.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache creates the Redis client shared by snapshots, locks,
// the response cache and the job queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.KeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideLockService exposes the Redis client as the cycle's lock backend.
func ProvideLockService(rc *pkgcache.RedisCache) pkgcache.Service { return rc }

// ProvideSnapshotStore creates the latest-decision snapshot store.
func ProvideSnapshotStore(rc *pkgcache.RedisCache) domrepo.SnapshotStore {
	return internalrepo.NewRedisSnapshotStore(rc, 24*time.Hour)
}

// ProvideMarketStream creates the exchange WebSocket stream.
func ProvideMarketStream(cfg *config.Config, lgr *applogger.Logger) domrepo.MarketStream {
	return marketfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		lgr,
	)
}

// ProvideTrendEvaluator creates the EMA trend classifier.
func ProvideTrendEvaluator() domsvc.TrendEvaluator {
	return trend.NewEvaluator()
}

// ProvideEntryEvaluator creates the support/resistance entry grader.
func ProvideEntryEvaluator(cfg *config.Config) domsvc.EntryEvaluator {
	return levels.NewEvaluator(cfg.Trading.LevelWindow, cfg.Trading.EntryThresholdFrac)
}

// ProvideOracle creates the direction oracle, either the embedded logistic
// artifact or the remote scoring service.
func ProvideOracle(cfg *config.Config) (domsvc.DirectionOracle, error) {
	if cfg.Oracle.Mode == "remote" {
		return oracle.NewHTTPOracle(cfg.Oracle.ServiceURL, cfg.Oracle.Timeout, cfg.Oracle.RetryMax, features.SchemaLen), nil
	}
	o, err := oracle.NewLogisticOracle(cfg.Oracle.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("oracle artifact: %w", err)
	}
	return o, nil
}

// ProvideRiskGovernor creates the ledger-backed risk governor.
func ProvideRiskGovernor(ledger domrepo.OutcomeLedger, lgr *applogger.Logger, cfg *config.Config) (domsvc.RiskGovernor, error) {
	g, err := risk.NewGovernor(ledger, lgr, risk.Limits{
		MaxTradesPerDay:     cfg.Trading.MaxTradesPerDay,
		MaxDailyLoss:        cfg.Trading.MaxDailyLoss,
		RiskPerPoint:        cfg.Trading.RiskPerPoint,
		MinViableStopPoints: cfg.Trading.MinViableStopPoints,
		ReadRetryMax:        cfg.Postgres.ReadRetryMax,
		ReadRetryDelay:      cfg.Postgres.ReadRetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("risk governor: %w", err)
	}
	return g, nil
}

// ProvideFeatureExtractor creates the oracle feature extractor.
func ProvideFeatureExtractor(cfg *config.Config) *features.Extractor {
	return features.NewExtractor(cfg.Trading.Timeframe)
}

// ProvideDecisionFusion creates the per-cycle gate cascade.
func ProvideDecisionFusion(
	store domrepo.CandleStore,
	trendEval domsvc.TrendEvaluator,
	entryEval domsvc.EntryEvaluator,
	directionOracle domsvc.DirectionOracle,
	governor domsvc.RiskGovernor,
	extractor *features.Extractor,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) (*usecase.DecisionFusion, error) {
	return usecase.NewDecisionFusion(store, trendEval, entryEval, directionOracle, governor, extractor, metrics, lgr, usecase.FusionParams{
		Symbol:          cfg.Trading.Symbol,
		Timeframe:       domrepo.NormalizeTimeframe(cfg.Trading.Timeframe),
		ConfidenceFloor: cfg.Trading.ConfidenceFloor,
	})
}

// ProvideDecisionCycle creates the session-windowed evaluation loop.
func ProvideDecisionCycle(
	fusion *usecase.DecisionFusion,
	sink domrepo.DecisionSink,
	snapshots domrepo.SnapshotStore,
	locks pkgcache.Service,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) (*usecase.DecisionCycle, error) {
	openMin, err := util.ParseClock(cfg.Trading.SessionOpen)
	if err != nil {
		return nil, err
	}
	closeMin, err := util.ParseClock(cfg.Trading.SessionClose)
	if err != nil {
		return nil, err
	}
	return usecase.NewDecisionCycle(fusion, sink, snapshots, locks, metrics, lgr, usecase.CycleParams{
		Symbol:          cfg.Trading.Symbol,
		Interval:        cfg.Trading.CycleInterval,
		SessionOpenMin:  openMin,
		SessionCloseMin: closeMin,
	}), nil
}

// ProvideTickCollector assembles the stream -> pipeline -> candle path.
func ProvideTickCollector(
	stream domrepo.MarketStream,
	storage domrepo.CandleStorage,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.TickCollector {
	builder := usecase.NewCandleBuilder(domrepo.NormalizeTimeframe(cfg.Trading.Timeframe))
	ingestor := usecase.NewCandleIngestor(builder, storage, metrics, lgr)

	opts := []mid.PipelineOption{
		mid.WithMaxRPS(cfg.Feed.MaxRPS),
		mid.WithBufferSize(cfg.Feed.BufferSize),
	}
	if len(cfg.Feed.SymbolMap) > 0 {
		symbolMap := cfg.Feed.SymbolMap
		opts = append(opts, mid.WithTransform(func(t *models.Tick) *models.Tick {
			if canonical, ok := symbolMap[t.Symbol]; ok {
				t.Symbol = canonical
			}
			return t
		}))
	}
	pipe := mid.NewIngestPipeline(ingestor, metrics, opts...)

	return usecase.NewTickCollector(stream, ingestor, pipe, metrics, lgr, usecase.CollectorParams{})
}

// ProvideOutcomeRecorder creates the validated ledger writer.
func ProvideOutcomeRecorder(ledger domrepo.OutcomeLedger, metrics domrepo.Metrics, lgr *applogger.Logger) *usecase.OutcomeRecorder {
	return usecase.NewOutcomeRecorder(ledger, metrics, lgr)
}

// ProvideOutcomesHandler registers the fill-report consumer handler.
func ProvideOutcomesHandler(recorder *usecase.OutcomeRecorder, metrics domrepo.Metrics, cfg *config.Config) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomesTopic, recorder, metrics)
}

// ProvideJobQueue creates the Redis-backed outcome job queue.
func ProvideJobQueue(lgr *applogger.Logger, rc *pkgcache.RedisCache, recorder *usecase.OutcomeRecorder, cfg *config.Config) *pkgqueue.RedisQueue {
	q := pkgqueue.NewRedisQueue(lgr, &pkgqueue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client(), pkgqueue.ModeConsumerOnly,
		pkgqueue.WithKeyPrefix(cfg.Redis.KeyPrefix+":queue"),
	)
	q.RegisterJob(usecase.NewOutcomeJob(recorder))
	return q
}

// ProvideCandlesUseCase creates the candle read API.
func ProvideCandlesUseCase(store domrepo.CandleStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideStatusUseCase creates the ops status aggregate.
func ProvideStatusUseCase(
	snapshots domrepo.SnapshotStore,
	governor domsvc.RiskGovernor,
	store domrepo.CandleStore,
	trendEval domsvc.TrendEvaluator,
	stream domrepo.MarketStream,
	cfg *config.Config,
) (*usecase.StatusUseCase, error) {
	openMin, err := util.ParseClock(cfg.Trading.SessionOpen)
	if err != nil {
		return nil, err
	}
	closeMin, err := util.ParseClock(cfg.Trading.SessionClose)
	if err != nil {
		return nil, err
	}
	return usecase.NewStatusUseCase(snapshots, governor, store, trendEval, stream, usecase.StatusParams{
		Symbol:          cfg.Trading.Symbol,
		SessionOpenMin:  openMin,
		SessionCloseMin: closeMin,
	})
}

// ProvideAPIHandler creates the HTTP handler with its response cache.
func ProvideAPIHandler(
	lgr *applogger.Logger,
	cycle *usecase.DecisionCycle,
	candles *usecase.CandlesUseCase,
	status *usecase.StatusUseCase,
	recorder *usecase.OutcomeRecorder,
	snapshots domrepo.SnapshotStore,
	governor domsvc.RiskGovernor,
	rc *pkgcache.RedisCache,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewDecisionsHandler(lgr, cycle, candles, status, recorder, snapshots, governor, cfg.Trading.Symbol)
	layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
	h.SetCache(icache.NewSharedBytes(layered))
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.TickCollector,
	cycle *usecase.DecisionCycle,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	jobQueue *pkgqueue.RedisQueue,
	sink domrepo.DecisionSink,
	chClient *pkgch.Client,
	pgClient *pkgpg.Client,
	rc *pkgcache.RedisCache,
	handler xhttp.Handler,
) *server.App {
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	app := server.New(cfg, lgr, collector, cycle, consumer, kh, jobQueue, sink, chClient, pgClient, rc)
	app.SetHTTPHandler(handler)
	return app
}
