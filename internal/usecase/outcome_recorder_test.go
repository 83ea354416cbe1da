package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
)

type ledgerStub struct {
	mu   sync.Mutex
	rows []models.TradeOutcome
	err  error
}

func (s *ledgerStub) Append(ctx context.Context, o *models.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, *o)
	return nil
}

func (s *ledgerStub) ListWindow(ctx context.Context, from, to time.Time) ([]models.TradeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TradeOutcome(nil), s.rows...), nil
}

func (s *ledgerStub) Health(ctx context.Context) error { return nil }

func (s *ledgerStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func TestRecordAppendsAndDefaultsTimestamp(t *testing.T) {
	ledger := &ledgerStub{}
	metrics := newCountingMetrics()
	rec := NewOutcomeRecorder(ledger, metrics, fusionLogger(t))
	fixed := time.Date(2025, 7, 14, 11, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	err := rec.Record(context.Background(), &models.TradeOutcome{
		SignalID:    "sig-1",
		Symbol:      "NIFTY",
		RiskPoints:  12,
		StopLossHit: true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ledger.count() != 1 {
		t.Fatalf("rows = %d, want 1", ledger.count())
	}
	if !ledger.rows[0].Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want defaulted %v", ledger.rows[0].Timestamp, fixed)
	}
	if metrics.outcomes["stop_loss"] != 1 {
		t.Errorf("stop_loss outcomes = %d", metrics.outcomes["stop_loss"])
	}
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	ledger := &ledgerStub{}
	rec := NewOutcomeRecorder(ledger, newCountingMetrics(), fusionLogger(t))
	ts := time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC)

	err := rec.Record(context.Background(), &models.TradeOutcome{
		SignalID:   "sig-2",
		Symbol:     "NIFTY",
		RiskPoints: 8,
		TargetHit:  true,
		Timestamp:  ts,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !ledger.rows[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", ledger.rows[0].Timestamp, ts)
	}
}

func TestRecordRejectsInvalidRows(t *testing.T) {
	valid := func() *models.TradeOutcome {
		return &models.TradeOutcome{SignalID: "sig", Symbol: "NIFTY", RiskPoints: 5}
	}
	tests := []struct {
		name   string
		mutate func(*models.TradeOutcome)
	}{
		{"missing signal id", func(o *models.TradeOutcome) { o.SignalID = "" }},
		{"missing symbol", func(o *models.TradeOutcome) { o.Symbol = "" }},
		{"zero risk points", func(o *models.TradeOutcome) { o.RiskPoints = 0 }},
		{"negative risk points", func(o *models.TradeOutcome) { o.RiskPoints = -3 }},
		{"stop and target both hit", func(o *models.TradeOutcome) { o.StopLossHit = true; o.TargetHit = true }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &ledgerStub{}
			rec := NewOutcomeRecorder(ledger, newCountingMetrics(), fusionLogger(t))
			o := valid()
			tc.mutate(o)
			err := rec.Record(context.Background(), o)
			if !errors.Is(err, ErrInvalidOutcome) {
				t.Fatalf("err = %v, want ErrInvalidOutcome", err)
			}
			if ledger.count() != 0 {
				t.Error("rejected row reached the ledger")
			}
		})
	}
}

func TestRecordSurfacesLedgerFailure(t *testing.T) {
	ledger := &ledgerStub{err: errors.New("postgres down")}
	metrics := newCountingMetrics()
	rec := NewOutcomeRecorder(ledger, metrics, fusionLogger(t))

	err := rec.Record(context.Background(), &models.TradeOutcome{
		SignalID: "sig", Symbol: "NIFTY", RiskPoints: 5, StopLossHit: true,
	})
	if err == nil || errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("err = %v, want plain ledger failure", err)
	}
	if metrics.errorsSeen["ledger_append"] != 1 {
		t.Errorf("ledger_append errors = %d", metrics.errorsSeen["ledger_append"])
	}
}

func TestParseOutcomeRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      models.OutcomeRequest
		wantTime time.Time
		wantSym  string
		wantErr  bool
	}{
		{
			name:     "rfc3339 timestamp",
			req:      models.OutcomeRequest{SignalID: "s", Symbol: "NIFTY", RiskPoints: 5, Timestamp: "2025-07-14T10:30:00Z"},
			wantTime: time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC),
			wantSym:  "NIFTY",
		},
		{
			name:     "unix seconds",
			req:      models.OutcomeRequest{SignalID: "s", Symbol: "NIFTY", RiskPoints: 5, Timestamp: "1752489000"},
			wantTime: time.Unix(1752489000, 0).UTC(),
			wantSym:  "NIFTY",
		},
		{
			name:     "unix milliseconds",
			req:      models.OutcomeRequest{SignalID: "s", Symbol: "NIFTY", RiskPoints: 5, Timestamp: "1752489000000"},
			wantTime: time.Unix(1752489000, 0).UTC(),
			wantSym:  "NIFTY",
		},
		{
			name:    "empty timestamp stays zero",
			req:     models.OutcomeRequest{SignalID: "s", Symbol: "NIFTY", RiskPoints: 5},
			wantSym: "NIFTY",
		},
		{
			name:    "symbol falls back to default",
			req:     models.OutcomeRequest{SignalID: "s", RiskPoints: 5},
			wantSym: "BANKNIFTY",
		},
		{
			name:    "garbage timestamp",
			req:     models.OutcomeRequest{SignalID: "s", Symbol: "NIFTY", RiskPoints: 5, Timestamp: "yesterday"},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, err := ParseOutcomeRequest(&tc.req, "BANKNIFTY")
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidOutcome) {
					t.Fatalf("err = %v, want ErrInvalidOutcome", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutcomeRequest: %v", err)
			}
			if o.Symbol != tc.wantSym {
				t.Errorf("symbol = %q, want %q", o.Symbol, tc.wantSym)
			}
			if !o.Timestamp.Equal(tc.wantTime) {
				t.Errorf("timestamp = %v, want %v", o.Timestamp, tc.wantTime)
			}
		})
	}
}
