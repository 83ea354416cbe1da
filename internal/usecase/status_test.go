package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
)

type connStub bool

func (c connStub) IsConnected() bool { return bool(c) }

func newStatus(t *testing.T, snaps *stubSnapshots, d fusionDeps, stream StreamStatus) *StatusUseCase {
	t.Helper()
	uc, err := NewStatusUseCase(snaps, d.governor, d.store, d.trend, stream, StatusParams{
		Symbol:          "NIFTY",
		SessionOpenMin:  555,
		SessionCloseMin: 930,
	})
	if err != nil {
		t.Fatalf("NewStatusUseCase: %v", err)
	}
	// Monday 10:00 IST
	uc.now = func() time.Time { return time.Date(2025, 7, 14, 4, 30, 0, 0, time.UTC) }
	return uc
}

func TestStatusReportAggregatesAllSections(t *testing.T) {
	d := defaultDeps()
	snaps := &stubSnapshots{}
	snaps.SaveLatest(context.Background(), &models.Decision{ID: "dec-1", Action: models.ActionBuy})

	uc := newStatus(t, snaps, d, connStub(true))
	rep := uc.Report(context.Background())

	if rep.Errors != nil {
		t.Fatalf("errors = %v", rep.Errors)
	}
	if rep.Decision == nil || rep.Decision.ID != "dec-1" {
		t.Errorf("decision = %+v", rep.Decision)
	}
	if rep.Risk == nil || rep.Risk.RemainingTrades != 2 {
		t.Errorf("risk = %+v", rep.Risk)
	}
	if rep.Trend == nil || rep.Trend.Direction != models.TrendUp {
		t.Errorf("trend = %+v", rep.Trend)
	}
	if rep.LastClose != 129 {
		t.Errorf("last close = %v, want 129", rep.LastClose)
	}
	if !rep.StreamUp || !rep.InSession {
		t.Errorf("stream=%v session=%v, want both true", rep.StreamUp, rep.InSession)
	}
}

func TestStatusReportDegradesPerSection(t *testing.T) {
	d := defaultDeps()
	d.store.err = errors.New("clickhouse down")
	d.governor.stateErr = errors.New("postgres down")

	uc := newStatus(t, &stubSnapshots{}, d, connStub(false))
	rep := uc.Report(context.Background())

	if rep.Decision != nil {
		t.Errorf("decision = %+v, want nil for empty snapshot store", rep.Decision)
	}
	if rep.Errors["trend"] == "" {
		t.Error("trend outage not reported")
	}
	if rep.Errors["risk"] == "" {
		t.Error("risk outage not reported")
	}
	if rep.Risk != nil || rep.Trend != nil {
		t.Errorf("degraded sections should stay nil: risk=%+v trend=%+v", rep.Risk, rep.Trend)
	}
	if rep.StreamUp {
		t.Error("stream should report down")
	}
}

func TestStatusReportMarksWeekendOutOfSession(t *testing.T) {
	d := defaultDeps()
	uc := newStatus(t, &stubSnapshots{}, d, nil)
	// Saturday 10:00 IST
	uc.now = func() time.Time { return time.Date(2025, 7, 12, 4, 30, 0, 0, time.UTC) }

	rep := uc.Report(context.Background())
	if rep.InSession {
		t.Error("weekend reported in session")
	}
}
