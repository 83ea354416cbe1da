package models

import "time"

// Tick is a single trade print from the market feed.
type Tick struct {
	Symbol    string
	Price     float64
	Qty       float64
	Timestamp int64 // unix seconds
}

// Candle is one OHLCV bar for the index underlying.
// Bucket is the bar open time, aligned to the timeframe in venue time.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts the close series in the order given.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
