package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	"StrikeGate/pkg/cache"
	"StrikeGate/pkg/logger"
	"StrikeGate/pkg/util"
)

// ErrEvaluationInFlight is returned when a manual trigger races a running cycle.
var ErrEvaluationInFlight = errors.New("evaluation already in flight")

// CycleParams configures the evaluation cadence and session window.
type CycleParams struct {
	Symbol          string
	Interval        time.Duration
	SessionOpenMin  int
	SessionCloseMin int
}

// DecisionCycle drives fusion on a fixed cadence during market hours and
// routes the resulting decisions to the sink and snapshot store. Cycles never
// overlap: an atomic in-process guard covers this replica, a Redis SetNX lock
// covers the fleet.
type DecisionCycle struct {
	fusion    *DecisionFusion
	sink      domrepo.DecisionSink
	snapshots domrepo.SnapshotStore
	locks     cache.Service
	metrics   domrepo.Metrics
	logger    *logger.Logger

	symbol   string
	interval time.Duration
	venue    *time.Location
	openMin  int
	closeMin int

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewDecisionCycle(
	fusion *DecisionFusion,
	sink domrepo.DecisionSink,
	snapshots domrepo.SnapshotStore,
	locks cache.Service,
	metrics domrepo.Metrics,
	l *logger.Logger,
	p CycleParams,
) *DecisionCycle {
	if p.Interval <= 0 {
		p.Interval = time.Minute
	}
	return &DecisionCycle{
		fusion:    fusion,
		sink:      sink,
		snapshots: snapshots,
		locks:     locks,
		metrics:   metrics,
		logger:    l,
		symbol:    p.Symbol,
		interval:  p.Interval,
		venue:     util.VenueLocation(),
		openMin:   p.SessionOpenMin,
		closeMin:  p.SessionCloseMin,
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// Start blocks, evaluating once per interval until Stop or context cancel.
func (c *DecisionCycle) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopChan:
			return nil
		case <-ticker.C:
			if !util.InSession(c.now(), c.venue, c.openMin, c.closeMin) {
				continue
			}
			if _, err := c.runOnce(ctx); err != nil && !errors.Is(err, ErrEvaluationInFlight) {
				c.logger.Error("evaluation cycle failed", logger.Error(err))
			}
		}
	}
}

// Stop halts the cadence loop. Safe to call more than once.
func (c *DecisionCycle) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// EvaluateNow runs one full cycle outside the cadence, under the same
// overlap guards. Session gating is deliberately skipped so operators can
// exercise the pipeline off-hours.
func (c *DecisionCycle) EvaluateNow(ctx context.Context) (*models.Decision, error) {
	return c.runOnce(ctx)
}

func (c *DecisionCycle) runOnce(ctx context.Context) (*models.Decision, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordError("cycle_overlap")
		return nil, ErrEvaluationInFlight
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	if c.locks != nil {
		key := c.lockKey()
		// TTL outlives a stuck evaluation so a crashed replica cannot wedge
		// the fleet.
		ok, err := c.locks.TryLock(ctx, key, 2*c.interval)
		if err != nil {
			// Lock store down: the in-process guard still prevents local
			// overlap, so proceed rather than halting all evaluation.
			c.logger.Warn("cycle lock unavailable", logger.Error(err))
		} else if !ok {
			c.logger.Debug("cycle held by another replica", logger.String("key", key))
			return nil, ErrEvaluationInFlight
		} else {
			defer func() {
				if uerr := c.locks.Unlock(context.WithoutCancel(ctx), key); uerr != nil {
					c.logger.Warn("cycle unlock failed", logger.Error(uerr))
				}
			}()
		}
	}

	d, err := c.fusion.Evaluate(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	c.logger.Info("decision",
		logger.String("id", d.ID),
		logger.String("symbol", d.Symbol),
		logger.String("action", string(d.Action)),
		logger.Float64("confidence", d.Confidence),
		logger.Strings("reasons", d.Reasons),
	)

	if c.sink != nil {
		if perr := c.sink.Publish(ctx, d); perr != nil {
			c.metrics.RecordError("decision_publish")
			c.logger.Error("decision publish failed", logger.String("id", d.ID), logger.Error(perr))
		}
	}
	if c.snapshots != nil {
		if serr := c.snapshots.SaveLatest(ctx, d); serr != nil {
			c.metrics.RecordError("snapshot_save")
			c.logger.Warn("snapshot save failed", logger.String("id", d.ID), logger.Error(serr))
		}
	}
	return d, nil
}

func (c *DecisionCycle) lockKey() string {
	return fmt.Sprintf("cycle:lock:%s", c.symbol)
}
