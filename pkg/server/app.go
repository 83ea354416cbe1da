package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "StrikeGate/internal/domain/repository"
	"StrikeGate/internal/usecase"
	"StrikeGate/pkg/cache"
	pkgch "StrikeGate/pkg/clickhouse"
	"StrikeGate/pkg/config"
	xhttp "StrikeGate/pkg/http"
	pkgkafka "StrikeGate/pkg/kafka"
	applogger "StrikeGate/pkg/logger"
	pkgpg "StrikeGate/pkg/postgres"
	pkgqueue "StrikeGate/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.TickCollector
	cycle       *usecase.DecisionCycle
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	jobQueue    *pkgqueue.RedisQueue
	sink        domrepo.DecisionSink
	chClient    *pkgch.Client
	pgClient    *pkgpg.Client
	redisCache  *cache.RedisCache
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.TickCollector,
	cycle *usecase.DecisionCycle,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	jobQueue *pkgqueue.RedisQueue,
	sink domrepo.DecisionSink,
	chClient *pkgch.Client,
	pgClient *pkgpg.Client,
	redisCache *cache.RedisCache,
) *App {
	return &App{
		cfg:        cfg,
		logger:     lgr,
		collector:  collector,
		cycle:      cycle,
		consumer:   consumer,
		kh:         kh,
		jobQueue:   jobQueue,
		sink:       sink,
		chClient:   chClient,
		pgClient:   pgClient,
		redisCache: redisCache,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		serverOpts = append(serverOpts,
			xhttp.WithMetricsPath(a.cfg.Metrics.Path),
			xhttp.WithRequestMetrics(l, 500*time.Millisecond),
		)
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, serverOpts...)

	// Start tick collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))
	}

	// Start decision cycle loop
	if a.cycle != nil {
		go func() {
			if err := a.cycle.Start(ctx); err != nil {
				l.Error("decision cycle error", applogger.Error(err))
			}
		}()
		l.Info("decision cycle started",
			applogger.String("symbol", a.cfg.Trading.Symbol),
			applogger.Duration("interval", a.cfg.Trading.CycleInterval))
	}

	// Start fills consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start outcome job queue
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop producing new decisions first
	if a.cycle != nil {
		a.cycle.Stop()
	}

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumers
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			l.Warn("decision sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
