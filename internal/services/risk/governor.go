package risk

import (
	"context"
	"fmt"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	domsvc "StrikeGate/internal/domain/service"
	"StrikeGate/pkg/logger"
	"StrikeGate/pkg/util"
)

// Blocked-verdict reasons. Fusion copies these into WAIT decisions verbatim,
// so the wording is part of the contract.
const (
	ReasonTradeLimit = "daily trade limit reached"
	ReasonLossLimit  = "daily loss limit reached"
	ReasonMinStop    = "remaining budget below minimum viable stop"
)

// Limits are the venue-day risk budget parameters.
type Limits struct {
	MaxTradesPerDay     int
	MaxDailyLoss        float64
	RiskPerPoint        float64
	MinViableStopPoints float64
	ReadRetryMax        int
	ReadRetryDelay      time.Duration
}

func (l Limits) validate() error {
	if l.MaxTradesPerDay <= 0 {
		return fmt.Errorf("max trades per day must be positive, got %d", l.MaxTradesPerDay)
	}
	if l.MaxDailyLoss <= 0 {
		return fmt.Errorf("max daily loss must be positive, got %v", l.MaxDailyLoss)
	}
	if l.RiskPerPoint <= 0 {
		return fmt.Errorf("risk per point must be positive, got %v", l.RiskPerPoint)
	}
	if l.MinViableStopPoints <= 0 {
		return fmt.Errorf("min viable stop points must be positive, got %v", l.MinViableStopPoints)
	}
	return nil
}

// Governor rules on today's risk budget. Every ruling re-reads the outcome
// ledger for the venue-local calendar day; nothing is cached between calls.
type Governor struct {
	ledger domrepo.OutcomeLedger
	logger *logger.Logger
	limits Limits
	venue  *time.Location
	now    func() time.Time
}

type GovernorOption func(*Governor)

// WithClock overrides the governor's notion of now.
func WithClock(now func() time.Time) GovernorOption {
	return func(g *Governor) { g.now = now }
}

// WithVenue overrides the venue timezone used for day boundaries.
func WithVenue(loc *time.Location) GovernorOption {
	return func(g *Governor) { g.venue = loc }
}

// NewGovernor builds a governor over the given ledger. Non-positive limits
// are rejected here rather than surfacing as nonsense verdicts later.
func NewGovernor(ledger domrepo.OutcomeLedger, l *logger.Logger, limits Limits, opts ...GovernorOption) (*Governor, error) {
	if err := limits.validate(); err != nil {
		return nil, fmt.Errorf("risk limits: %w", err)
	}
	if limits.ReadRetryMax < 0 {
		limits.ReadRetryMax = 0
	}
	if limits.ReadRetryDelay <= 0 {
		limits.ReadRetryDelay = 100 * time.Millisecond
	}

	g := &Governor{
		ledger: ledger,
		logger: l,
		limits: limits,
		venue:  util.VenueLocation(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// TodayState derives the day's budget from one consistent ledger read.
func (g *Governor) TodayState(ctx context.Context) (models.RiskState, error) {
	rows, err := g.readToday(ctx)
	if err != nil {
		return models.RiskState{}, err
	}
	return g.deriveState(rows), nil
}

// CanTakeTrade rules on opening one more trade today. It never returns an
// error: a ledger outage yields a blocked verdict instead.
func (g *Governor) CanTakeTrade(ctx context.Context) models.RiskVerdict {
	rows, err := g.readToday(ctx)
	if err != nil {
		g.logger.Error("risk ruling failed closed", logger.Error(err))
		return models.RiskVerdict{Reason: fmt.Sprintf("risk ledger unavailable: %v", err)}
	}

	state := g.deriveState(rows)
	if state.TodayTradeCount >= g.limits.MaxTradesPerDay {
		return models.RiskVerdict{Reason: ReasonTradeLimit, State: state}
	}
	if state.RemainingLoss <= 0 {
		return models.RiskVerdict{Reason: ReasonLossLimit, State: state}
	}
	if state.RemainingStopPoints < g.limits.MinViableStopPoints {
		return models.RiskVerdict{Reason: ReasonMinStop, State: state}
	}
	return models.RiskVerdict{Allowed: true, State: state}
}

// ValidatePosition rules on a concrete stop distance. Stricter than
// CanTakeTrade: the position must also fit inside what is left of today's
// budget.
func (g *Governor) ValidatePosition(ctx context.Context, riskPoints float64) models.RiskVerdict {
	if riskPoints <= 0 {
		return models.RiskVerdict{Reason: "risk points must be positive"}
	}
	if maxStop := g.limits.MaxDailyLoss / g.limits.RiskPerPoint; riskPoints > maxStop {
		return models.RiskVerdict{Reason: fmt.Sprintf("stop of %.2f points exceeds maximum viable stop %.2f", riskPoints, maxStop)}
	}

	rows, err := g.readToday(ctx)
	if err != nil {
		g.logger.Error("position validation failed closed", logger.Error(err))
		return models.RiskVerdict{Reason: fmt.Sprintf("risk ledger unavailable: %v", err)}
	}

	state := g.deriveState(rows)
	if riskPoints*g.limits.RiskPerPoint > state.RemainingLoss {
		return models.RiskVerdict{
			Reason: fmt.Sprintf("position risk %.2f exceeds remaining daily budget %.2f",
				riskPoints*g.limits.RiskPerPoint, state.RemainingLoss),
			State: state,
		}
	}
	return models.RiskVerdict{Allowed: true, State: state}
}

// readToday lists the current venue day's rows with bounded retry.
func (g *Governor) readToday(ctx context.Context) ([]models.TradeOutcome, error) {
	from, to := util.DayWindow(g.now(), g.venue)

	var lastErr error
	for attempt := 0; attempt <= g.limits.ReadRetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.limits.ReadRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		rows, err := g.ledger.ListWindow(ctx, from, to)
		if err == nil {
			return rows, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("read outcome ledger: %w", lastErr)
}

// deriveState folds ledger rows into the day's remaining budget. Only
// stop-loss hits consume the loss budget; wins and open trades still count
// against the trade cap.
func (g *Governor) deriveState(rows []models.TradeOutcome) models.RiskState {
	var loss float64
	for _, row := range rows {
		if row.StopLossHit {
			loss += row.RiskPoints * g.limits.RiskPerPoint
		}
	}

	remaining := g.limits.MaxDailyLoss - loss
	return models.RiskState{
		TodayLoss:           loss,
		TodayTradeCount:     len(rows),
		RemainingLoss:       remaining,
		RemainingTrades:     g.limits.MaxTradesPerDay - len(rows),
		RemainingStopPoints: remaining / g.limits.RiskPerPoint,
	}
}

var _ domsvc.RiskGovernor = (*Governor)(nil)
