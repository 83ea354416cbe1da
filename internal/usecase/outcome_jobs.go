package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StrikeGate/internal/domain/models"
	"StrikeGate/pkg/queue"
)

// OutcomeJob drains deferred outcome rows from the Redis queue. Backfill
// tooling enqueues here instead of writing the ledger directly, which keeps
// retry handling in one place.
type OutcomeJob struct {
	recorder *OutcomeRecorder
}

func NewOutcomeJob(recorder *OutcomeRecorder) *OutcomeJob {
	return &OutcomeJob{recorder: recorder}
}

func (j *OutcomeJob) Name() string { return "outcome-recorder" }
func (j *OutcomeJob) Type() string { return "outcome.record" }

func (j *OutcomeJob) Handle(ctx context.Context, payload interface{}) error {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("outcome payload: %w", err)
		}
		raw = b
	}

	var m struct {
		SignalID   string  `json:"signal_id"`
		Symbol     string  `json:"symbol"`
		RiskPoints float64 `json:"risk_points"`
		SLHit      bool    `json:"sl_hit"`
		TargetHit  bool    `json:"target_hit"`
		T          int64   `json:"t"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("outcome payload: %w", err)
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	var ts time.Time
	if m.T > 0 {
		ts = time.Unix(m.T, 0).UTC()
	}

	return j.recorder.Record(ctx, &models.TradeOutcome{
		SignalID:    m.SignalID,
		Symbol:      m.Symbol,
		RiskPoints:  m.RiskPoints,
		StopLossHit: m.SLHit,
		TargetHit:   m.TargetHit,
		Timestamp:   ts,
	})
}

var _ queue.Job = (*OutcomeJob)(nil)
