package repository

import (
	"context"
	"time"

	"StrikeGate/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// CandleStore provides read-only access to candles for the evaluators.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// OutcomeLedger is the append-only trade outcome store backing the risk
// governor. Append is used by outcome-recording tooling only; the governor
// itself is a pure reader.
type OutcomeLedger interface {
	Append(ctx context.Context, o *models.TradeOutcome) error
	ListWindow(ctx context.Context, from, to time.Time) ([]models.TradeOutcome, error)
	Health(ctx context.Context) error
}
