package models

// TrendDirection classifies the prevailing intraday trend.
type TrendDirection string

const (
	TrendUp      TrendDirection = "UP"
	TrendDown    TrendDirection = "DOWN"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// TrendAssessment is the outcome of the moving-average trend read.
// Strength is normalized to [0,1] from the relative EMA separation.
type TrendAssessment struct {
	Direction TrendDirection
	Strength  float64
	FastEMA   float64
	SlowEMA   float64
	LastClose float64
	Reason    string
}

// Aligned reports whether a predicted direction trades with the trend.
// A neutral trend vetoes nothing.
func (t TrendAssessment) Aligned(d Direction) bool {
	switch t.Direction {
	case TrendNeutral:
		return true
	case TrendUp:
		return d == DirectionUp
	case TrendDown:
		return d == DirectionDown
	default:
		return false
	}
}
