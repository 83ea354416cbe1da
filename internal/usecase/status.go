package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	domsvc "StrikeGate/internal/domain/service"
	"StrikeGate/pkg/util"
)

// StreamStatus reports market feed connectivity.
type StreamStatus interface {
	IsConnected() bool
}

// StatusParams configures the ops status aggregate.
type StatusParams struct {
	Symbol          string
	Lookback        int
	SessionOpenMin  int
	SessionCloseMin int
}

// StatusUseCase assembles the ops status view. The three backed sections
// (decision snapshot, risk budget, trend) load in parallel; a section outage
// degrades that section only.
type StatusUseCase struct {
	snapshots domrepo.SnapshotStore
	governor  domsvc.RiskGovernor
	store     domrepo.CandleStore
	trend     domsvc.TrendEvaluator
	stream    StreamStatus

	symbol   string
	lookback int
	venue    *time.Location
	openMin  int
	closeMin int
	timeout  time.Duration
	now      func() time.Time
}

func NewStatusUseCase(
	snapshots domrepo.SnapshotStore,
	governor domsvc.RiskGovernor,
	store domrepo.CandleStore,
	trend domsvc.TrendEvaluator,
	stream StreamStatus,
	p StatusParams,
) (*StatusUseCase, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("status: symbol required")
	}
	if p.Lookback <= 0 {
		p.Lookback = 50
	}
	return &StatusUseCase{
		snapshots: snapshots,
		governor:  governor,
		store:     store,
		trend:     trend,
		stream:    stream,
		symbol:    p.Symbol,
		lookback:  p.Lookback,
		venue:     util.VenueLocation(),
		openMin:   p.SessionOpenMin,
		closeMin:  p.SessionCloseMin,
		timeout:   5 * time.Second,
		now:       time.Now,
	}, nil
}

func (uc *StatusUseCase) Report(ctx context.Context) *models.StatusReport {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	now := uc.now()
	res := &models.StatusReport{
		Symbol:    uc.symbol,
		InSession: util.InSession(now, uc.venue, uc.openMin, uc.closeMin),
		Timestamp: now.UTC(),
		Errors:    map[string]string{},
	}
	if uc.stream != nil {
		res.StreamUp = uc.stream.IsConnected()
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	type trendRead struct {
		assessment models.TrendAssessment
		lastClose  float64
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d, found, err := uc.snapshots.LoadLatest(ctx, uc.symbol)
		if err == nil && !found {
			ch <- item{"decision", nil, nil}
			return
		}
		ch <- item{"decision", d, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		// live ledger read, never a cached copy
		v, err := uc.governor.TodayState(ctx)
		ch <- item{"risk", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		candles, err := uc.store.GetLatestNCandles(ctx, uc.symbol, uc.lookback, domrepo.DefaultTimeframe())
		if err != nil {
			ch <- item{"trend", nil, err}
			return
		}
		ch <- item{"trend", trendRead{uc.trend.Assess(candles), models.LastClose(candles)}, nil}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "decision":
			if d, ok := it.val.(*models.Decision); ok && d != nil {
				res.Decision = d
			}
		case "risk":
			v := it.val.(models.RiskState)
			res.Risk = &v
		case "trend":
			v := it.val.(trendRead)
			res.Trend = &v.assessment
			res.LastClose = v.lastClose
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res
}
