package levels

import (
	"fmt"

	"StrikeGate/internal/domain/models"
	domsvc "StrikeGate/internal/domain/service"
)

const (
	defaultWindow        = 20
	defaultThresholdFrac = 0.20
)

// Evaluator grades entry quality against the recent support/resistance
// range. Longs are graded by distance above support, shorts by distance
// below resistance.
type Evaluator struct {
	window int
	frac   float64
}

func NewEvaluator(window int, thresholdFrac float64) *Evaluator {
	if window <= 0 {
		window = defaultWindow
	}
	if thresholdFrac <= 0 || thresholdFrac >= 1 {
		thresholdFrac = defaultThresholdFrac
	}
	return &Evaluator{window: window, frac: thresholdFrac}
}

// Levels derives support/resistance from the trailing window. Returns nil
// when there is not enough history to fill the window.
func (e *Evaluator) Levels(candles []models.Candle) *models.PriceLevels {
	if len(candles) < e.window {
		return nil
	}

	recent := candles[len(candles)-e.window:]
	support := recent[0].Low
	resistance := recent[0].High
	for _, c := range recent[1:] {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}

	return &models.PriceLevels{
		Support:    support,
		Resistance: resistance,
		Midpoint:   (support + resistance) / 2,
		Range:      resistance - support,
	}
}

// Assess grades how far price has drifted from the level backing the trade.
// Ties on a grade boundary take the better grade. A nil levels input
// degrades to FAIR rather than blocking the pipeline.
func (e *Evaluator) Assess(price float64, direction models.Direction, levels *models.PriceLevels) models.EntryAssessment {
	if levels == nil {
		return models.EntryAssessment{
			Grade:  models.EntryFair,
			Reason: "levels unavailable",
		}
	}

	threshold := e.frac * levels.Range

	distance := price - levels.Support
	ref := "support"
	if direction == models.DirectionDown {
		distance = levels.Resistance - price
		ref = "resistance"
	}

	var grade models.EntryGrade
	var reason string
	switch {
	case distance <= threshold:
		grade = models.EntryGood
		reason = fmt.Sprintf("price within entry threshold of %s", ref)
	case distance <= 1.5*threshold:
		grade = models.EntryFair
		reason = fmt.Sprintf("price moderately extended from %s", ref)
	default:
		grade = models.EntryPoor
		reason = fmt.Sprintf("price too extended from %s", ref)
	}

	return models.EntryAssessment{
		Grade:       grade,
		Distance:    distance,
		Threshold:   threshold,
		AtThreshold: threshold > 0 && (distance == threshold || distance == 1.5*threshold),
		Reason:      reason,
	}
}

var _ domsvc.EntryEvaluator = (*Evaluator)(nil)
