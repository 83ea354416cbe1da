package levels

import (
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
)

func mkCandle(i int, low, high float64) models.Candle {
	base := time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)
	return models.Candle{
		Bucket: base.Add(time.Duration(i) * time.Minute),
		Symbol: "NIFTY",
		Open:   (low + high) / 2,
		High:   high,
		Low:    low,
		Close:  (low + high) / 2,
		Volume: 1,
	}
}

// rangeWindow builds 20 candles whose lows bottom at 95 and highs top at 115.
func rangeWindow() []models.Candle {
	out := make([]models.Candle, 0, 20)
	for i := 0; i < 20; i++ {
		low, high := 100.0, 110.0
		if i == 7 {
			low = 95
		}
		if i == 12 {
			high = 115
		}
		out = append(out, mkCandle(i, low, high))
	}
	return out
}

func TestLevelsFromWindow(t *testing.T) {
	e := NewEvaluator(20, 0.20)

	lv := e.Levels(rangeWindow())
	if lv == nil {
		t.Fatal("expected levels, got nil")
	}
	if lv.Support != 95 || lv.Resistance != 115 {
		t.Fatalf("expected support=95 resistance=115, got %v/%v", lv.Support, lv.Resistance)
	}
	if lv.Midpoint != 105 || lv.Range != 20 {
		t.Errorf("expected midpoint=105 range=20, got %v/%v", lv.Midpoint, lv.Range)
	}
}

func TestLevelsInsufficientWindow(t *testing.T) {
	e := NewEvaluator(20, 0.20)

	if lv := e.Levels(rangeWindow()[:19]); lv != nil {
		t.Fatalf("expected nil levels for short window, got %+v", lv)
	}
}

func TestLevelsUseMostRecentWindow(t *testing.T) {
	e := NewEvaluator(20, 0.20)

	// An extreme old candle outside the trailing window must not widen the range.
	candles := append([]models.Candle{mkCandle(-1, 1, 1000)}, rangeWindow()...)
	lv := e.Levels(candles)
	if lv == nil {
		t.Fatal("expected levels, got nil")
	}
	if lv.Support != 95 || lv.Resistance != 115 {
		t.Fatalf("old candle leaked into window: support=%v resistance=%v", lv.Support, lv.Resistance)
	}
}

func TestAssessGrades(t *testing.T) {
	e := NewEvaluator(20, 0.20)
	lv := e.Levels(rangeWindow()) // support=95 resistance=115 threshold=4

	tests := []struct {
		name        string
		price       float64
		direction   models.Direction
		want        models.EntryGrade
		atThreshold bool
	}{
		{"long near support", 98, models.DirectionUp, models.EntryGood, false},
		{"long exactly at threshold", 99, models.DirectionUp, models.EntryGood, true},
		{"long moderately extended", 100.5, models.DirectionUp, models.EntryFair, false},
		{"long exactly at fair boundary", 101, models.DirectionUp, models.EntryFair, true},
		{"long too extended", 102, models.DirectionUp, models.EntryPoor, false},
		{"long below support", 94, models.DirectionUp, models.EntryGood, false},
		{"short near resistance", 112, models.DirectionDown, models.EntryGood, false},
		{"short moderately extended", 109.5, models.DirectionDown, models.EntryFair, false},
		{"short too extended", 108, models.DirectionDown, models.EntryPoor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := e.Assess(tt.price, tt.direction, lv)
			if a.Grade != tt.want {
				t.Fatalf("expected %s, got %s (distance=%v threshold=%v)",
					tt.want, a.Grade, a.Distance, a.Threshold)
			}
			if a.AtThreshold != tt.atThreshold {
				t.Errorf("at-threshold: expected %v, got %v", tt.atThreshold, a.AtThreshold)
			}
		})
	}
}

func TestAssessNilLevels(t *testing.T) {
	e := NewEvaluator(20, 0.20)

	a := e.Assess(100, models.DirectionUp, nil)
	if a.Grade != models.EntryFair {
		t.Fatalf("expected FAIR on nil levels, got %s", a.Grade)
	}
	if a.Reason != "levels unavailable" {
		t.Errorf("unexpected reason %q", a.Reason)
	}
	if !a.Acceptable() {
		t.Error("FAIR should be acceptable")
	}
}

func TestAcceptableGrades(t *testing.T) {
	good := models.EntryAssessment{Grade: models.EntryGood}
	fair := models.EntryAssessment{Grade: models.EntryFair}
	poor := models.EntryAssessment{Grade: models.EntryPoor}

	if !good.Acceptable() || !fair.Acceptable() {
		t.Error("GOOD and FAIR should be acceptable")
	}
	if poor.Acceptable() {
		t.Error("POOR should not be acceptable")
	}
}
