package usecase

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newOutcomesHandler(t *testing.T, ledger *ledgerStub, metrics *countingMetrics) *KafkaOutcomesHandler {
	t.Helper()
	rec := NewOutcomeRecorder(ledger, metrics, fusionLogger(t))
	return NewKafkaOutcomesHandler("strikegate.fills", rec, metrics)
}

func TestOutcomesHandlerRecordsFill(t *testing.T) {
	ledger := &ledgerStub{}
	h := newOutcomesHandler(t, ledger, newCountingMetrics())

	if got := h.Topic(); got != "strikegate.fills" {
		t.Fatalf("topic = %q", got)
	}

	payload := []byte(`{"signal_id":"sig-9","symbol":"NIFTY","risk_points":14.5,"sl_hit":true,"t":1752489000}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ledger.count() != 1 {
		t.Fatalf("rows = %d, want 1", ledger.count())
	}
	row := ledger.rows[0]
	if row.SignalID != "sig-9" || row.RiskPoints != 14.5 || !row.StopLossHit || row.TargetHit {
		t.Errorf("row = %+v", row)
	}
	if !row.Timestamp.Equal(time.Unix(1752489000, 0).UTC()) {
		t.Errorf("timestamp = %v", row.Timestamp)
	}
}

func TestOutcomesHandlerNormalizesMilliseconds(t *testing.T) {
	ledger := &ledgerStub{}
	h := newOutcomesHandler(t, ledger, newCountingMetrics())

	payload := []byte(`{"signal_id":"sig-ms","symbol":"NIFTY","risk_points":5,"target_hit":true,"t":1752489000000}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !ledger.rows[0].Timestamp.Equal(time.Unix(1752489000, 0).UTC()) {
		t.Errorf("timestamp = %v, want second resolution", ledger.rows[0].Timestamp)
	}
}

func TestOutcomesHandlerRejectsMalformedPayload(t *testing.T) {
	ledger := &ledgerStub{}
	metrics := newCountingMetrics()
	h := newOutcomesHandler(t, ledger, metrics)

	if err := h.Handle(context.Background(), []byte(`{not json`)); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if metrics.errorsSeen["consumer_unmarshal"] != 1 {
		t.Errorf("consumer_unmarshal = %d", metrics.errorsSeen["consumer_unmarshal"])
	}
	if ledger.count() != 0 {
		t.Error("malformed payload reached the ledger")
	}
}

func TestOutcomesHandlerRejectsInvalidFill(t *testing.T) {
	ledger := &ledgerStub{}
	h := newOutcomesHandler(t, ledger, newCountingMetrics())

	payload := []byte(`{"symbol":"NIFTY","risk_points":5,"sl_hit":true,"t":1752489000}`)
	err := h.Handle(context.Background(), payload)
	if !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("err = %v, want ErrInvalidOutcome", err)
	}
	if ledger.count() != 0 {
		t.Error("invalid fill reached the ledger")
	}
}
