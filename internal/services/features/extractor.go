package features

import (
	"fmt"
	"math"

	"StrikeGate/internal/domain/models"
)

// Feature row schema, in order. The oracle's model artifact is trained
// against exactly this layout; order changes are breaking.
const (
	idxReturn1  = 0
	idxReturn5  = 1
	idxEMAGap   = 2
	idxRSI      = 3
	idxVol      = 4
	idxRangePos = 5

	SchemaLen = 6
)

// FeatureNames lists the schema columns in row order.
var FeatureNames = []string{"ret_1", "ret_5", "ema_gap", "rsi_14", "vol_20", "range_pos"}

const (
	rsiPeriod     = 14
	volWindow     = 20
	minRowCandles = 21
)

// Extractor builds the fixed-schema feature row consumed by the oracle.
type Extractor struct {
	barsPerYear float64
}

func NewExtractor(timeframe string) *Extractor {
	return &Extractor{barsPerYear: BarsPerYearForTF(timeframe)}
}

// Extract computes one feature row from the most recent candles. Levels may
// be nil; the range position column then falls back to a neutral midpoint.
func (e *Extractor) Extract(candles []models.Candle, levels *models.PriceLevels) ([]float64, error) {
	if len(candles) < minRowCandles {
		return nil, fmt.Errorf("need %d candles for a feature row, have %d", minRowCandles, len(candles))
	}

	closes := models.Closes(candles)
	returns := ComputeLogReturns(candles)
	last := closes[len(closes)-1]

	row := make([]float64, SchemaLen)
	row[idxReturn1] = returns[len(returns)-1]
	row[idxReturn5] = logReturnOver(closes, 5)
	row[idxEMAGap] = emaGap(closes)
	row[idxRSI] = rsi(returns, rsiPeriod)
	row[idxVol] = RealizedVolatility(returns, volWindow, e.barsPerYear)
	row[idxRangePos] = rangePosition(last, levels)

	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite feature %s", FeatureNames[i])
		}
	}
	return row, nil
}

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over a rolling
// window using the provided number of bars per year. Returns the latest
// window sigma.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYearForTF returns the approximate number of bars per year for a timeframe.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	default:
		return 365 * 24 * 60
	}
}

// logReturnOver is the n-bar log return ln(C_t / C_{t-n}).
func logReturnOver(closes []float64, n int) float64 {
	if len(closes) <= n {
		return 0
	}
	cur := closes[len(closes)-1]
	prev := closes[len(closes)-1-n]
	if prev <= 0 || cur <= 0 {
		return 0
	}
	return math.Log(cur / prev)
}

// emaGap is (fast-slow)/slow over 9/21 EMAs, the same pair the trend
// evaluator uses.
func emaGap(closes []float64) float64 {
	fast := foldEMA(closes, 9)
	slow := foldEMA(closes, 21)
	if slow == 0 {
		return 0
	}
	return (fast - slow) / slow
}

func foldEMA(closes []float64, period int) float64 {
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

// rsi computes a simple-average RSI over the last period returns, scaled
// to [0,1].
func rsi(returns []float64, period int) float64 {
	if len(returns) < period {
		return 0.5
	}
	var gains, losses float64
	for i := len(returns) - period; i < len(returns); i++ {
		r := returns[i]
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		return 1
	}
	rs := gains / losses
	return 1 - 1/(1+rs)
}

// rangePosition places the close inside the support/resistance band,
// clamped to [0,1]. Without levels the position is neutral.
func rangePosition(close float64, levels *models.PriceLevels) float64 {
	if levels == nil || levels.Range <= 0 {
		return 0.5
	}
	pos := (close - levels.Support) / levels.Range
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}
