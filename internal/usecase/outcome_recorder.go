package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	applogger "StrikeGate/pkg/logger"
)

// ErrInvalidOutcome marks ledger rows rejected before any write.
var ErrInvalidOutcome = errors.New("invalid outcome")

// OutcomeRecorder validates realized trade results and appends them to the
// risk ledger. Both ingest paths (fills consumer, ops endpoint) land here.
type OutcomeRecorder struct {
	ledger  domrepo.OutcomeLedger
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewOutcomeRecorder(ledger domrepo.OutcomeLedger, metrics domrepo.Metrics, l *applogger.Logger) *OutcomeRecorder {
	return &OutcomeRecorder{ledger: ledger, metrics: metrics, logger: l, now: time.Now}
}

// Record appends one outcome row. Timestamp defaults to now when unset.
func (r *OutcomeRecorder) Record(ctx context.Context, o *models.TradeOutcome) error {
	if err := validateOutcome(o); err != nil {
		r.metrics.RecordError("outcome_reject")
		return err
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = r.now().UTC()
	}

	if err := r.ledger.Append(ctx, o); err != nil {
		r.metrics.RecordError("ledger_append")
		return fmt.Errorf("append outcome: %w", err)
	}

	r.metrics.RecordOutcome(resultLabel(o))
	r.logger.Info("outcome recorded",
		applogger.String("signal_id", o.SignalID),
		applogger.String("symbol", o.Symbol),
		applogger.Float64("risk_points", o.RiskPoints),
		applogger.Bool("sl_hit", o.StopLossHit),
		applogger.Bool("target_hit", o.TargetHit))
	return nil
}

func validateOutcome(o *models.TradeOutcome) error {
	if o == nil {
		return fmt.Errorf("%w: nil row", ErrInvalidOutcome)
	}
	if o.SignalID == "" {
		return fmt.Errorf("%w: signal id required", ErrInvalidOutcome)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol required", ErrInvalidOutcome)
	}
	if o.RiskPoints <= 0 {
		return fmt.Errorf("%w: risk points must be positive", ErrInvalidOutcome)
	}
	if o.StopLossHit && o.TargetHit {
		return fmt.Errorf("%w: stop and target cannot both be hit", ErrInvalidOutcome)
	}
	return nil
}

func resultLabel(o *models.TradeOutcome) string {
	switch {
	case o.StopLossHit:
		return "stop_loss"
	case o.TargetHit:
		return "target"
	default:
		return "flat"
	}
}

// ParseOutcomeRequest converts the ops endpoint payload into a ledger row.
// Timestamp accepts RFC3339 or unix seconds/milliseconds; empty means now.
func ParseOutcomeRequest(req *models.OutcomeRequest, defaultSymbol string) (*models.TradeOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidOutcome)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = defaultSymbol
	}
	o := &models.TradeOutcome{
		SignalID:    req.SignalID,
		Symbol:      symbol,
		RiskPoints:  req.RiskPoints,
		StopLossHit: req.StopLossHit,
		TargetHit:   req.TargetHit,
	}
	if req.Timestamp != "" {
		ts, err := parseOutcomeTime(req.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutcome, err)
		}
		o.Timestamp = ts
	}
	return o, nil
}

func parseOutcomeTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is neither RFC3339 nor unix", s)
	}
	if sec > 1e11 { // ms
		sec /= 1000
	}
	return time.Unix(sec, 0).UTC(), nil
}
