//go:build wireinject
// +build wireinject

package di

import (
	"StrikeGate/pkg/config"
	"StrikeGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Repositories
		ProvideCandleRepository,
		ProvideCandleStore,
		ProvideCandleStorage,
		ProvideOutcomeLedger,
		ProvideDecisionSink,
		ProvideSnapshotStore,
		ProvideLockService,
		ProvideMarketStream,

		// Domain services
		ProvideTrendEvaluator,
		ProvideEntryEvaluator,
		ProvideOracle,
		ProvideRiskGovernor,
		ProvideFeatureExtractor,

		// Use cases
		ProvideDecisionFusion,
		ProvideDecisionCycle,
		ProvideTickCollector,
		ProvideOutcomeRecorder,
		ProvideOutcomesHandler,
		ProvideJobQueue,
		ProvideCandlesUseCase,
		ProvideStatusUseCase,

		// HTTP and application server
		ProvideAPIHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
