package models

// HTTP request models for the decisions API. Binding fills from query or
// JSON body, defaults apply before validation.

// EvaluateRequest triggers an on-demand decision cycle.
type EvaluateRequest struct {
	Symbol string `query:"symbol" json:"symbol"` // empty = engine default symbol
}

// LatestDecisionRequest fetches the last published decision.
type LatestDecisionRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
}

// CandlesRequest fetches recent candles for inspection. From/To select an
// explicit window; both empty serves the latest Limit bars.
type CandlesRequest struct {
	Symbol    string `query:"symbol" json:"symbol"`
	Timeframe string `query:"tf" json:"tf" default:"1m"`
	Limit     int    `query:"n" json:"n" default:"120" validate:"gte=1,lte=5000"`
	From      string `query:"from" json:"from"` // RFC3339 or unix seconds
	To        string `query:"to" json:"to"`
}

// OutcomeRequest records a closed trade into the risk ledger (ops entry
// path; the execution platform normally reports through Kafka).
type OutcomeRequest struct {
	SignalID    string  `json:"signal_id" validate:"required"`
	Symbol      string  `json:"symbol"`
	RiskPoints  float64 `json:"risk_points" validate:"required,gt=0"`
	StopLossHit bool    `json:"sl_hit"`
	TargetHit   bool    `json:"target_hit"`
	Timestamp   string  `json:"timestamp"` // RFC3339 or unix seconds; empty = now
}
