package models

import "time"

// StatusReport is the ops aggregate: latest decision, live risk budget, and
// current trend read side by side. Sections that fail to load are named in
// Errors instead of failing the whole report.
type StatusReport struct {
	Symbol    string
	InSession bool
	StreamUp  bool
	LastClose float64
	Decision  *Decision
	Risk      *RiskState
	Trend     *TrendAssessment
	Timestamp time.Time
	Errors    map[string]string
}
