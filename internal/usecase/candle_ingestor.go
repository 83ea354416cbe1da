package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StrikeGate/internal/domain/models"
	drepo "StrikeGate/internal/domain/repository"
	applogger "StrikeGate/pkg/logger"
)

const defaultMaxPendingBars = 512

// CandleIngestor is the pipeline downstream: it folds ticks into bars and
// persists completed bars, holding finished bars for retry while storage is
// unavailable.
type CandleIngestor struct {
	builder *CandleBuilder
	storage drepo.CandleStorage
	metrics drepo.Metrics
	logger  *applogger.Logger

	mu         sync.Mutex
	pendingSet []*models.Candle
	maxPending int
}

func NewCandleIngestor(
	builder *CandleBuilder,
	storage drepo.CandleStorage,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *CandleIngestor {
	return &CandleIngestor{
		builder:    builder,
		storage:    storage,
		metrics:    metrics,
		logger:     l,
		maxPending: defaultMaxPendingBars,
	}
}

// Process folds one tick. Held bars are flushed first; on flush failure the
// tick is untouched and the error lets the pipeline requeue it without double
// counting. Once the tick is folded, storage failures park the finished bar
// instead of bouncing the tick.
func (i *CandleIngestor) Process(ctx context.Context, t *models.Tick) error {
	if err := i.flushPending(ctx); err != nil {
		return err
	}

	done, ok := i.builder.Add(t)
	if !ok {
		i.metrics.RecordError("tick_late")
		return nil
	}
	if done == nil {
		return nil
	}

	if err := i.storage.Store(ctx, done); err != nil {
		i.metrics.RecordError("candle_store")
		i.logger.Warn("candle store failed, holding bar",
			applogger.String("symbol", done.Symbol),
			applogger.Error(err))
		i.hold(done)
	}
	return nil
}

// FlushClosed persists bars whose bucket closed at least grace ago. The
// periodic flusher calls this so quiet symbols still land their last bar.
func (i *CandleIngestor) FlushClosed(ctx context.Context, now time.Time, grace time.Duration) error {
	if err := i.flushPending(ctx); err != nil {
		return err
	}
	bars := i.builder.Flush(now, grace)
	return i.storeBars(ctx, bars)
}

// FlushAll persists every open bar. Shutdown path.
func (i *CandleIngestor) FlushAll(ctx context.Context) error {
	if err := i.flushPending(ctx); err != nil {
		return err
	}
	return i.storeBars(ctx, i.builder.Drain())
}

// PendingBars reports bars parked for retry.
func (i *CandleIngestor) PendingBars() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pendingSet)
}

func (i *CandleIngestor) storeBars(ctx context.Context, bars []*models.Candle) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	if err := i.storage.StoreBatch(ctx, bars); err != nil {
		i.metrics.RecordError("candle_store_batch")
		i.hold(bars...)
		return fmt.Errorf("store %d candles: %w", len(bars), err)
	}
	i.metrics.RecordLatency("candle_store_batch", time.Since(start).Seconds())
	return nil
}

func (i *CandleIngestor) flushPending(ctx context.Context) error {
	i.mu.Lock()
	bars := i.pendingSet
	i.pendingSet = nil
	i.mu.Unlock()

	if len(bars) == 0 {
		return nil
	}
	if err := i.storage.StoreBatch(ctx, bars); err != nil {
		i.hold(bars...)
		return fmt.Errorf("flush %d held candles: %w", len(bars), err)
	}
	return nil
}

func (i *CandleIngestor) hold(bars ...*models.Candle) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pendingSet = append(i.pendingSet, bars...)
	if over := len(i.pendingSet) - i.maxPending; over > 0 {
		// oldest bars go first when the park fills up
		i.pendingSet = i.pendingSet[over:]
		i.metrics.RecordError("candle_pending_drop")
	}
}
