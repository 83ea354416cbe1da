package models

// PriceLevels holds the trailing support/resistance window summary.
// Invariant: Support <= Midpoint <= Resistance and Range >= 0.
type PriceLevels struct {
	Support    float64
	Resistance float64
	Midpoint   float64
	Range      float64
}

// EntryGrade ranks how favorably priced an entry is relative to the levels.
type EntryGrade string

const (
	EntryGood EntryGrade = "GOOD"
	EntryFair EntryGrade = "FAIR"
	EntryPoor EntryGrade = "POOR"
)

// EntryAssessment is the graded read of the current price against levels.
// Distance is measured toward the level that favors the trade direction;
// AtThreshold marks an exact boundary hit (resolved to the better grade).
type EntryAssessment struct {
	Grade       EntryGrade
	Distance    float64
	Threshold   float64
	AtThreshold bool
	Reason      string
}

// Acceptable reports whether the grade permits an entry.
func (a EntryAssessment) Acceptable() bool {
	return a.Grade == EntryGood || a.Grade == EntryFair
}
