package repository

import (
	"context"

	"StrikeGate/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type CandleStorage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, c *models.Candle) error
	StoreBatch(ctx context.Context, candles []*models.Candle) error
	Health(ctx context.Context) error // ping
	Close() error
}

type DecisionSink interface {
	Publish(ctx context.Context, d *models.Decision) error
	Close() error
}

// SnapshotStore keeps the latest published decision per symbol for dashboard
// reads. Risk state never lands here: it is always recomputed from the ledger.
type SnapshotStore interface {
	SaveLatest(ctx context.Context, d *models.Decision) error
	LoadLatest(ctx context.Context, symbol string) (*models.Decision, bool, error)
}

type Metrics interface {
	RecordDecision(symbol, action string)
	RecordGateBlock(gate string)
	RecordOutcome(result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
