package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestOutcomeJobHandlesRawPayload(t *testing.T) {
	ledger := &ledgerStub{}
	rec := NewOutcomeRecorder(ledger, newCountingMetrics(), fusionLogger(t))
	job := NewOutcomeJob(rec)

	if job.Type() != "outcome.record" {
		t.Fatalf("type = %q", job.Type())
	}

	payload := json.RawMessage(`{"signal_id":"sig-q","symbol":"NIFTY","risk_points":9,"sl_hit":true,"t":1752489000}`)
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ledger.count() != 1 {
		t.Fatalf("rows = %d, want 1", ledger.count())
	}
	if !ledger.rows[0].Timestamp.Equal(time.Unix(1752489000, 0).UTC()) {
		t.Errorf("timestamp = %v", ledger.rows[0].Timestamp)
	}
}

func TestOutcomeJobHandlesMapPayload(t *testing.T) {
	ledger := &ledgerStub{}
	rec := NewOutcomeRecorder(ledger, newCountingMetrics(), fusionLogger(t))
	job := NewOutcomeJob(rec)

	payload := map[string]interface{}{
		"signal_id":   "sig-m",
		"symbol":      "NIFTY",
		"risk_points": 4.0,
		"target_hit":  true,
	}
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ledger.count() != 1 || !ledger.rows[0].TargetHit {
		t.Fatalf("rows = %+v", ledger.rows)
	}
}

func TestOutcomeJobRejectsGarbage(t *testing.T) {
	rec := NewOutcomeRecorder(&ledgerStub{}, newCountingMetrics(), fusionLogger(t))
	job := NewOutcomeJob(rec)

	if err := job.Handle(context.Background(), json.RawMessage(`"not an object"`)); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}
