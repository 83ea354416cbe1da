package risk

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
	"StrikeGate/pkg/logger"
	"StrikeGate/pkg/util"
)

type fakeLedger struct {
	rows      []models.TradeOutcome
	err       error
	failFirst int
	calls     int
	lastFrom  time.Time
	lastTo    time.Time
}

func (f *fakeLedger) Append(ctx context.Context, o *models.TradeOutcome) error { return nil }

func (f *fakeLedger) ListWindow(ctx context.Context, from, to time.Time) ([]models.TradeOutcome, error) {
	f.calls++
	f.lastFrom, f.lastTo = from, to
	if f.err != nil && f.calls <= f.failFirst {
		return nil, f.err
	}
	if f.err != nil && f.failFirst == 0 {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeLedger) Health(ctx context.Context) error { return f.err }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testLimits() Limits {
	return Limits{
		MaxTradesPerDay:     2,
		MaxDailyLoss:        1000,
		RiskPerPoint:        50,
		MinViableStopPoints: 5,
		ReadRetryDelay:      time.Millisecond,
	}
}

func newTestGovernor(t *testing.T, ledger *fakeLedger, limits Limits, opts ...GovernorOption) *Governor {
	t.Helper()
	g, err := NewGovernor(ledger, testLogger(t), limits, opts...)
	if err != nil {
		t.Fatalf("NewGovernor: %v", err)
	}
	return g
}

func stopLossRow(points float64) models.TradeOutcome {
	return models.TradeOutcome{SignalID: "sig", Symbol: "NIFTY", RiskPoints: points, StopLossHit: true, Timestamp: time.Now()}
}

func winRow(points float64) models.TradeOutcome {
	return models.TradeOutcome{SignalID: "sig", Symbol: "NIFTY", RiskPoints: points, TargetHit: true, Timestamp: time.Now()}
}

func TestNewGovernorRejectsBadLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Limits)
	}{
		{name: "zero trade cap", mutate: func(l *Limits) { l.MaxTradesPerDay = 0 }},
		{name: "negative daily loss", mutate: func(l *Limits) { l.MaxDailyLoss = -1 }},
		{name: "zero risk per point", mutate: func(l *Limits) { l.RiskPerPoint = 0 }},
		{name: "zero min stop", mutate: func(l *Limits) { l.MinViableStopPoints = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits()
			tt.mutate(&limits)
			if _, err := NewGovernor(&fakeLedger{}, testLogger(t), limits); err == nil {
				t.Error("expected limits error, got nil")
			}
		})
	}
}

func TestTodayStateDerivation(t *testing.T) {
	ledger := &fakeLedger{rows: []models.TradeOutcome{stopLossRow(4), winRow(6)}}
	g := newTestGovernor(t, ledger, testLimits())

	state, err := g.TodayState(context.Background())
	if err != nil {
		t.Fatalf("TodayState: %v", err)
	}

	if state.TodayLoss != 200 {
		t.Errorf("TodayLoss = %v, want 200 (only stop-loss rows consume budget)", state.TodayLoss)
	}
	if state.TodayTradeCount != 2 {
		t.Errorf("TodayTradeCount = %d, want 2", state.TodayTradeCount)
	}
	if state.RemainingLoss != 800 {
		t.Errorf("RemainingLoss = %v, want 800", state.RemainingLoss)
	}
	if state.RemainingTrades != 0 {
		t.Errorf("RemainingTrades = %d, want 0", state.RemainingTrades)
	}
	if state.RemainingStopPoints != 16 {
		t.Errorf("RemainingStopPoints = %v, want 16", state.RemainingStopPoints)
	}
}

func TestTodayStateNeverCached(t *testing.T) {
	ledger := &fakeLedger{rows: []models.TradeOutcome{stopLossRow(2)}}
	g := newTestGovernor(t, ledger, testLimits())

	first, err := g.TodayState(context.Background())
	if err != nil {
		t.Fatalf("TodayState: %v", err)
	}
	second, err := g.TodayState(context.Background())
	if err != nil {
		t.Fatalf("TodayState: %v", err)
	}

	if first != second {
		t.Errorf("identical ledger produced different states: %+v vs %+v", first, second)
	}
	if ledger.calls != 2 {
		t.Errorf("ledger read %d times, want 2 (one per query)", ledger.calls)
	}
}

func TestCanTakeTradeGateOrder(t *testing.T) {
	tests := []struct {
		name       string
		limits     Limits
		rows       []models.TradeOutcome
		allowed    bool
		wantReason string
	}{
		{
			name:       "trade limit rules even when loss also exhausted",
			limits:     testLimits(),
			rows:       []models.TradeOutcome{stopLossRow(10), stopLossRow(10)},
			wantReason: ReasonTradeLimit,
		},
		{
			name:       "loss limit rules before min stop",
			limits:     testLimits(),
			rows:       []models.TradeOutcome{stopLossRow(20)},
			wantReason: ReasonLossLimit,
		},
		{
			name: "min stop blocks despite positive remaining loss",
			limits: Limits{
				MaxTradesPerDay:     2,
				MaxDailyLoss:        900,
				RiskPerPoint:        65,
				MinViableStopPoints: 5,
				ReadRetryDelay:      time.Millisecond,
			},
			rows:       []models.TradeOutcome{stopLossRow(850.0 / 65.0)},
			wantReason: ReasonMinStop,
		},
		{
			name:    "inside budget is allowed",
			limits:  testLimits(),
			rows:    []models.TradeOutcome{winRow(6)},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGovernor(t, &fakeLedger{rows: tt.rows}, tt.limits)

			verdict := g.CanTakeTrade(context.Background())
			if verdict.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v (reason %q)", verdict.Allowed, tt.allowed, verdict.Reason)
			}
			if verdict.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", verdict.Reason, tt.wantReason)
			}
			if verdict.State.TodayTradeCount != len(tt.rows) {
				t.Errorf("verdict state count = %d, want %d", verdict.State.TodayTradeCount, len(tt.rows))
			}
		})
	}
}

func TestCanTakeTradeMinStopProperty(t *testing.T) {
	// maxDailyLoss 900, riskPerPoint 65, today's loss 850: the loss budget is
	// positive but buys less than one viable 5-point stop.
	limits := Limits{
		MaxTradesPerDay:     5,
		MaxDailyLoss:        900,
		RiskPerPoint:        65,
		MinViableStopPoints: 5,
		ReadRetryDelay:      time.Millisecond,
	}
	g := newTestGovernor(t, &fakeLedger{rows: []models.TradeOutcome{stopLossRow(850.0 / 65.0)}}, limits)

	verdict := g.CanTakeTrade(context.Background())
	if verdict.Allowed {
		t.Fatal("expected blocked verdict")
	}
	if verdict.Reason != ReasonMinStop {
		t.Fatalf("Reason = %q, want %q", verdict.Reason, ReasonMinStop)
	}
	if verdict.State.RemainingLoss <= 0 {
		t.Errorf("RemainingLoss = %v, want positive", verdict.State.RemainingLoss)
	}
	if got := verdict.State.RemainingStopPoints; math.Abs(got-50.0/65.0) > 1e-9 {
		t.Errorf("RemainingStopPoints = %v, want %v", got, 50.0/65.0)
	}
}

func TestCanTakeTradeFailsClosed(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("connection refused")}
	limits := testLimits()
	limits.ReadRetryMax = 2
	g := newTestGovernor(t, ledger, limits)

	verdict := g.CanTakeTrade(context.Background())
	if verdict.Allowed {
		t.Fatal("ledger outage must block, not allow")
	}
	if !strings.Contains(verdict.Reason, "risk ledger unavailable") {
		t.Errorf("Reason = %q, want ledger outage named", verdict.Reason)
	}
	if ledger.calls != 3 {
		t.Errorf("ledger read %d times, want 3 (initial + 2 retries)", ledger.calls)
	}
}

func TestCanTakeTradeRecoversWithinRetryBudget(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("timeout"), failFirst: 1, rows: []models.TradeOutcome{winRow(3)}}
	limits := testLimits()
	limits.ReadRetryMax = 3
	g := newTestGovernor(t, ledger, limits)

	verdict := g.CanTakeTrade(context.Background())
	if !verdict.Allowed {
		t.Fatalf("expected allowed after transient failure, got %q", verdict.Reason)
	}
	if ledger.calls != 2 {
		t.Errorf("ledger read %d times, want 2", ledger.calls)
	}
}

func TestValidatePosition(t *testing.T) {
	tests := []struct {
		name       string
		rows       []models.TradeOutcome
		riskPoints float64
		allowed    bool
		wantSubstr string
	}{
		{name: "zero stop rejected", riskPoints: 0, wantSubstr: "positive"},
		{name: "negative stop rejected", riskPoints: -4, wantSubstr: "positive"},
		{name: "stop beyond daily cap", riskPoints: 25, wantSubstr: "maximum viable stop"},
		{
			name:       "stop beyond remaining budget",
			rows:       []models.TradeOutcome{stopLossRow(16)},
			riskPoints: 5,
			wantSubstr: "remaining daily budget",
		},
		{
			name:       "stop inside remaining budget",
			rows:       []models.TradeOutcome{stopLossRow(16)},
			riskPoints: 3,
			allowed:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGovernor(t, &fakeLedger{rows: tt.rows}, testLimits())

			verdict := g.ValidatePosition(context.Background(), tt.riskPoints)
			if verdict.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v (reason %q)", verdict.Allowed, tt.allowed, verdict.Reason)
			}
			if !tt.allowed && !strings.Contains(verdict.Reason, tt.wantSubstr) {
				t.Errorf("Reason = %q, want substring %q", verdict.Reason, tt.wantSubstr)
			}
		})
	}
}

func TestValidatePositionFailsClosed(t *testing.T) {
	g := newTestGovernor(t, &fakeLedger{err: errors.New("connection reset")}, testLimits())

	verdict := g.ValidatePosition(context.Background(), 3)
	if verdict.Allowed {
		t.Fatal("ledger outage must block, not allow")
	}
	if !strings.Contains(verdict.Reason, "risk ledger unavailable") {
		t.Errorf("Reason = %q, want ledger outage named", verdict.Reason)
	}
}

func TestReadsScopeToVenueDay(t *testing.T) {
	venue := util.VenueLocation()
	// 20:05 UTC is already the next calendar day in Asia/Kolkata.
	now := time.Date(2025, 7, 14, 20, 5, 0, 0, time.UTC)

	ledger := &fakeLedger{}
	g := newTestGovernor(t, ledger, testLimits(), WithClock(func() time.Time { return now }))

	if _, err := g.TodayState(context.Background()); err != nil {
		t.Fatalf("TodayState: %v", err)
	}

	wantFrom := time.Date(2025, 7, 15, 0, 0, 0, 0, venue)
	if !ledger.lastFrom.Equal(wantFrom) {
		t.Errorf("window start = %v, want %v", ledger.lastFrom, wantFrom)
	}
	if !ledger.lastTo.Equal(wantFrom.Add(24 * time.Hour)) {
		t.Errorf("window end = %v, want %v", ledger.lastTo, wantFrom.Add(24*time.Hour))
	}
}
