package usecase

import (
	"context"
	"fmt"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	domsvc "StrikeGate/internal/domain/service"
	"StrikeGate/internal/services/features"
	"StrikeGate/pkg/logger"

	"github.com/google/uuid"
)

// Gate reasons carried verbatim in Decision.Reasons. On WAIT the first entry
// names the failing gate.
const (
	ReasonNoData           = "insufficient market data"
	ReasonNoPrediction     = "prediction unavailable"
	ReasonLowConfidence    = "low confidence"
	ReasonCounterTrend     = "counter-trend"
	ReasonPoorEntry        = "poor entry quality"
	ReasonRiskNotConsulted = "risk governor not consulted"
)

// FusionParams configures one fusion engine instance.
type FusionParams struct {
	Symbol          string
	Timeframe       domrepo.Timeframe
	ConfidenceFloor float64
	Lookback        int
}

// DecisionFusion runs the per-cycle gate cascade: one candle read, pure
// trend/entry/oracle checks, and only then the I/O-bound risk governor.
// A WAIT from an early gate never touches the outcome ledger.
type DecisionFusion struct {
	store     domrepo.CandleStore
	trend     domsvc.TrendEvaluator
	entry     domsvc.EntryEvaluator
	oracle    domsvc.DirectionOracle
	governor  domsvc.RiskGovernor
	extractor *features.Extractor
	metrics   domrepo.Metrics
	logger    *logger.Logger

	symbol   string
	tf       domrepo.Timeframe
	floor    float64
	lookback int
}

func NewDecisionFusion(
	store domrepo.CandleStore,
	trend domsvc.TrendEvaluator,
	entry domsvc.EntryEvaluator,
	oracle domsvc.DirectionOracle,
	governor domsvc.RiskGovernor,
	extractor *features.Extractor,
	metrics domrepo.Metrics,
	l *logger.Logger,
	p FusionParams,
) (*DecisionFusion, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("fusion symbol required")
	}
	if p.ConfidenceFloor < 0 || p.ConfidenceFloor > 100 {
		return nil, fmt.Errorf("confidence floor %v outside [0,100]", p.ConfidenceFloor)
	}
	if p.Lookback <= 0 {
		p.Lookback = 50
	}
	tf := p.Timeframe
	if tf == "" {
		tf = domrepo.DefaultTimeframe()
	}

	return &DecisionFusion{
		store:     store,
		trend:     trend,
		entry:     entry,
		oracle:    oracle,
		governor:  governor,
		extractor: extractor,
		metrics:   metrics,
		logger:    l,
		symbol:    p.Symbol,
		tf:        tf,
		floor:     p.ConfidenceFloor,
		lookback:  p.Lookback,
	}, nil
}

// Evaluate produces one decision. It returns an error only when the candle
// read itself fails; every downstream degradation becomes a WAIT decision.
func (f *DecisionFusion) Evaluate(ctx context.Context) (*models.Decision, error) {
	start := time.Now()
	defer func() { f.metrics.RecordLatency("evaluate", time.Since(start).Seconds()) }()

	candles, err := f.store.GetLatestNCandles(ctx, f.symbol, f.lookback, f.tf)
	if err != nil {
		f.metrics.RecordError("candle_read")
		return nil, fmt.Errorf("load candles: %w", err)
	}

	trend := f.trend.Assess(candles)
	levels := f.entry.Levels(candles)
	price := models.LastClose(candles)
	if price > 0 {
		f.metrics.RecordLastPrice(f.symbol, price)
	}

	row, err := f.extractor.Extract(candles, levels)
	if err != nil {
		f.logger.Warn("feature row unavailable",
			logger.String("symbol", f.symbol), logger.Error(err))
		return f.gated(ReasonNoData, "data", models.Prediction{}, trend, ungradedEntry()), nil
	}

	pred, err := f.oracle.Predict(ctx, f.symbol, row)
	if err != nil {
		f.metrics.RecordError("oracle")
		f.logger.Error("oracle prediction failed",
			logger.String("symbol", f.symbol), logger.Error(err))
		return f.gated(ReasonNoPrediction, "oracle", models.Prediction{}, trend, ungradedEntry()), nil
	}

	entry := f.entry.Assess(price, pred.Direction, levels)

	if pred.Confidence < f.floor {
		return f.gated(ReasonLowConfidence, "confidence", pred, trend, entry), nil
	}
	if !trend.Aligned(pred.Direction) {
		return f.gated(ReasonCounterTrend, "trend", pred, trend, entry), nil
	}
	if !entry.Acceptable() {
		return f.gated(ReasonPoorEntry, "entry", pred, trend, entry), nil
	}

	verdict := f.governor.CanTakeTrade(ctx)
	if !verdict.Allowed {
		f.metrics.RecordGateBlock("risk")
		d := f.newDecision(models.ActionWait, pred, trend, entry)
		d.Risk = verdict.State
		d.Reasons = []string{verdict.Reason}
		f.metrics.RecordDecision(f.symbol, string(d.Action))
		return d, nil
	}

	action := models.ActionBuy
	if pred.Direction == models.DirectionDown {
		action = models.ActionSell
	}

	d := f.newDecision(action, pred, trend, entry)
	d.Confidence = pred.Confidence * f.trend.StrengthMultiplier(trend.Strength)
	d.Risk = verdict.State
	d.Reasons = []string{
		"confidence above floor",
		"trend aligned",
		entry.Reason,
		"risk budget available",
	}
	f.metrics.RecordDecision(f.symbol, string(action))
	return d, nil
}

// gated issues a WAIT before the governor was consulted: the decision carries
// the zero risk state and says so.
func (f *DecisionFusion) gated(reason, gate string, pred models.Prediction, trend models.TrendAssessment, entry models.EntryAssessment) *models.Decision {
	f.metrics.RecordGateBlock(gate)
	d := f.newDecision(models.ActionWait, pred, trend, entry)
	d.Reasons = []string{reason, ReasonRiskNotConsulted}
	f.metrics.RecordDecision(f.symbol, string(models.ActionWait))
	return d
}

func (f *DecisionFusion) newDecision(action models.Action, pred models.Prediction, trend models.TrendAssessment, entry models.EntryAssessment) *models.Decision {
	return &models.Decision{
		ID:         uuid.NewString(),
		Symbol:     f.symbol,
		Action:     action,
		Direction:  pred.Direction,
		Confidence: pred.Confidence,
		Trend:      trend,
		Entry:      entry,
		Timestamp:  time.Now().UTC(),
	}
}

// ungradedEntry fills Decision.Entry on paths where no prediction exists to
// grade against. FAIR keeps the degraded default permissive.
func ungradedEntry() models.EntryAssessment {
	return models.EntryAssessment{Grade: models.EntryFair, Reason: "entry not graded"}
}
