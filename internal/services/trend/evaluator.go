package trend

import (
	"math"

	"StrikeGate/internal/domain/models"
	domsvc "StrikeGate/internal/domain/service"
)

const (
	fastPeriod = 9
	slowPeriod = 21
	lookback   = 50

	// minCandles is the minimum history before any direction is called.
	minCandles = slowPeriod
)

// Evaluator grades trend direction from EMA alignment on recent closes.
// It holds no state; every call works off the candles it is given.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Assess computes fast/slow EMAs over the most recent closes and derives a
// direction. A direction is only called when price confirms the EMA side:
// UP needs last close above the fast EMA, DOWN below it. Anything else,
// including thin history, is NEUTRAL.
func (e *Evaluator) Assess(candles []models.Candle) models.TrendAssessment {
	if len(candles) < minCandles {
		return models.TrendAssessment{
			Direction: models.TrendNeutral,
			Reason:    "insufficient data",
		}
	}

	closes := models.Closes(candles)
	if len(closes) > lookback {
		closes = closes[len(closes)-lookback:]
	}

	fast := ema(closes, fastPeriod)
	slow := ema(closes, slowPeriod)
	last := closes[len(closes)-1]

	strength := 0.0
	if slow != 0 {
		strength = math.Abs(fast-slow) / slow * 100
		if strength > 1 {
			strength = 1
		}
	}

	direction := models.TrendNeutral
	reason := "no confirmed ema alignment"
	switch {
	case fast > slow && last > fast:
		direction = models.TrendUp
		reason = "fast ema above slow, price confirming"
	case fast < slow && last < fast:
		direction = models.TrendDown
		reason = "fast ema below slow, price confirming"
	}

	return models.TrendAssessment{
		Direction: direction,
		Strength:  strength,
		FastEMA:   fast,
		SlowEMA:   slow,
		LastClose: last,
		Reason:    reason,
	}
}

// StrengthMultiplier maps trend strength onto the factor applied to model
// confidence. Strong trends pass confidence through, weak ones dampen it.
func (e *Evaluator) StrengthMultiplier(strength float64) float64 {
	switch {
	case strength > 0.8:
		return 1.0
	case strength > 0.5:
		return 0.9
	case strength > 0.2:
		return 0.8
	default:
		return 0.6
	}
}

// ema is seeded from the first close, then folds the rest with
// alpha = 2/(period+1).
func ema(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	alpha := 2.0 / (float64(period) + 1)
	v := closes[0]
	for _, c := range closes[1:] {
		v = alpha*c + (1-alpha)*v
	}
	return v
}

var _ domsvc.TrendEvaluator = (*Evaluator)(nil)
