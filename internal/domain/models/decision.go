package models

import "time"

// Action is the fused trading decision for one evaluation cycle.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// Decision is the engine's per-cycle output. Reasons records the gate chain
// in evaluation order: on WAIT the first entry names the failing gate, on
// BUY/SELL every passed gate contributes one line. Risk carries the ledger
// snapshot this cycle was judged against (zero value when an earlier gate
// short-circuited before the governor was consulted).
type Decision struct {
	ID         string
	Symbol     string
	Action     Action
	Direction  Direction
	Confidence float64
	Risk       RiskState
	Reasons    []string
	Trend      TrendAssessment
	Entry      EntryAssessment
	Timestamp  time.Time
}

// Actionable reports whether the decision calls for placing a trade.
func (d Decision) Actionable() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}
