package models

import "time"

// TradeOutcome is one append-only risk ledger row: the realized result of a
// previously issued signal. Rows are written by outcome-recording tooling
// (fills consumer, ops endpoint); the risk governor only ever reads them.
type TradeOutcome struct {
	SignalID    string
	Symbol      string
	RiskPoints  float64
	StopLossHit bool
	TargetHit   bool
	Timestamp   time.Time
}

// RiskState is the day's risk budget derived from the ledger. It is
// recomputed from today's rows on every query and never cached: the ledger
// is the single source of truth.
type RiskState struct {
	TodayLoss           float64
	TodayTradeCount     int
	RemainingLoss       float64
	RemainingTrades     int
	RemainingStopPoints float64
}

// RiskVerdict is a governor ruling. On ledger failure the governor fails
// closed: Allowed=false with the outage named in Reason.
type RiskVerdict struct {
	Allowed bool
	Reason  string
	State   RiskState
}
