package service

import (
	"context"

	"StrikeGate/internal/domain/models"
)

// TrendEvaluator classifies the prevailing trend from a candle series.
// Implementations are pure: degraded input yields NEUTRAL, never an error.
type TrendEvaluator interface {
	Assess(candles []models.Candle) models.TrendAssessment
	StrengthMultiplier(strength float64) float64
}

// EntryEvaluator grades entry quality against trailing support/resistance.
type EntryEvaluator interface {
	Levels(candles []models.Candle) *models.PriceLevels
	Assess(price float64, direction models.Direction, levels *models.PriceLevels) models.EntryAssessment
}

// DirectionOracle predicts the next directional move from a fixed-schema
// feature row. Rows with the wrong arity are rejected.
type DirectionOracle interface {
	Predict(ctx context.Context, symbol string, features []float64) (models.Prediction, error)
	SchemaLen() int
}

// RiskGovernor rules on whether a new trade fits in today's risk budget.
// All rulings re-read the outcome ledger; nothing is cached between calls.
type RiskGovernor interface {
	TodayState(ctx context.Context) (models.RiskState, error)
	CanTakeTrade(ctx context.Context) models.RiskVerdict
	ValidatePosition(ctx context.Context, riskPoints float64) models.RiskVerdict
}
