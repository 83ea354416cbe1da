package features

import (
	"math"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
)

func mkCandles(closes ...float64) []models.Candle {
	base := time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "NIFTY",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1,
		}
	}
	return out
}

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestExtractSchema(t *testing.T) {
	e := NewExtractor("1m")

	row, err := e.Extract(mkCandles(risingCloses(30)...), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(row) != SchemaLen {
		t.Fatalf("expected %d features, got %d", SchemaLen, len(row))
	}
	if len(FeatureNames) != SchemaLen {
		t.Fatalf("feature names out of sync with schema: %d vs %d", len(FeatureNames), SchemaLen)
	}

	// Rising closes: positive returns, fast EMA above slow, RSI pegged high.
	if row[idxReturn1] <= 0 {
		t.Errorf("expected positive 1-bar return, got %v", row[idxReturn1])
	}
	if row[idxReturn5] <= row[idxReturn1] {
		t.Errorf("5-bar return should exceed 1-bar on a steady climb: %v vs %v", row[idxReturn5], row[idxReturn1])
	}
	if row[idxEMAGap] <= 0 {
		t.Errorf("expected positive ema gap, got %v", row[idxEMAGap])
	}
	if row[idxRSI] != 1 {
		t.Errorf("expected RSI pegged at 1 with no losses, got %v", row[idxRSI])
	}
	if row[idxVol] < 0 {
		t.Errorf("volatility cannot be negative: %v", row[idxVol])
	}
	if row[idxRangePos] != 0.5 {
		t.Errorf("expected neutral range position without levels, got %v", row[idxRangePos])
	}
}

func TestExtractInsufficientCandles(t *testing.T) {
	e := NewExtractor("1m")

	if _, err := e.Extract(mkCandles(risingCloses(20)...), nil); err == nil {
		t.Fatal("expected error for short history")
	}
}

func TestExtractRangePosition(t *testing.T) {
	e := NewExtractor("1m")
	lv := &models.PriceLevels{Support: 100, Resistance: 140, Range: 40, Midpoint: 120}

	closes := risingCloses(30) // last close 129
	row, err := e.Extract(mkCandles(closes...), lv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := (129.0 - 100.0) / 40.0
	if math.Abs(row[idxRangePos]-want) > 1e-9 {
		t.Fatalf("expected range position %v, got %v", want, row[idxRangePos])
	}
}

func TestExtractRangePositionClamped(t *testing.T) {
	e := NewExtractor("1m")
	lv := &models.PriceLevels{Support: 200, Resistance: 240, Range: 40, Midpoint: 220}

	// All closes below support: position clamps to 0.
	row, err := e.Extract(mkCandles(risingCloses(30)...), lv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row[idxRangePos] != 0 {
		t.Fatalf("expected clamped position 0, got %v", row[idxRangePos])
	}
}

func TestComputeLogReturns(t *testing.T) {
	candles := mkCandles(100, 110, 99)
	returns := ComputeLogReturns(candles)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-math.Log(1.1)) > 1e-12 {
		t.Errorf("expected ln(1.1), got %v", returns[0])
	}
	if returns[1] >= 0 {
		t.Errorf("expected negative return, got %v", returns[1])
	}

	if got := ComputeLogReturns(candles[:1]); got != nil {
		t.Errorf("expected nil for single candle, got %v", got)
	}
}

func TestRealizedVolatility(t *testing.T) {
	flat := make([]float64, 30)
	if v := RealizedVolatility(flat, 20, 365*24*60); v != 0 {
		t.Errorf("flat returns should have zero vol, got %v", v)
	}

	mixed := make([]float64, 30)
	for i := range mixed {
		if i%2 == 0 {
			mixed[i] = 0.01
		} else {
			mixed[i] = -0.01
		}
	}
	if v := RealizedVolatility(mixed, 20, 365*24*60); v <= 0 {
		t.Errorf("alternating returns should have positive vol, got %v", v)
	}

	if v := RealizedVolatility(mixed[:5], 20, 365*24*60); v != 0 {
		t.Errorf("short series should report zero vol, got %v", v)
	}
}
