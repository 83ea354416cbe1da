package usecase

import (
	"sort"
	"sync"
	"time"

	"StrikeGate/internal/domain/models"
	drepo "StrikeGate/internal/domain/repository"
)

// CandleBuilder folds the tick stream into fixed-width OHLCV bars, one open
// bar per symbol. A completed bar surfaces when a newer tick rolls the bucket
// or when Flush finds the bucket closed past the grace period.
type CandleBuilder struct {
	mu    sync.Mutex
	width time.Duration
	open  map[string]*models.Candle
}

func NewCandleBuilder(tf drepo.Timeframe) *CandleBuilder {
	return &CandleBuilder{
		width: tf.Duration(),
		open:  make(map[string]*models.Candle),
	}
}

// Add folds one tick into its bar. It returns the finished previous bar when
// the tick opens a new bucket, and ok=false when the tick lands before the
// open bucket (late ticks are dropped, never retrofitted into closed bars).
func (b *CandleBuilder) Add(t *models.Tick) (completed *models.Candle, ok bool) {
	// Bucket alignment holds in venue time too: IST's half-hour offset is a
	// multiple of every supported bar width.
	bucket := time.Unix(t.Timestamp, 0).UTC().Truncate(b.width)

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, exists := b.open[t.Symbol]
	if !exists {
		b.open[t.Symbol] = newBar(t, bucket)
		return nil, true
	}
	if bucket.Before(cur.Bucket) {
		return nil, false
	}
	if bucket.After(cur.Bucket) {
		b.open[t.Symbol] = newBar(t, bucket)
		return cur, true
	}

	if t.Price > cur.High {
		cur.High = t.Price
	}
	if t.Price < cur.Low {
		cur.Low = t.Price
	}
	cur.Close = t.Price
	cur.Volume += t.Qty
	return nil, true
}

// Flush returns bars whose bucket closed at least grace ago, removing them
// from the open set. Used by the periodic flusher so quiet symbols still get
// their last bar persisted.
func (b *CandleBuilder) Flush(now time.Time, grace time.Duration) []*models.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	var done []*models.Candle
	for sym, bar := range b.open {
		if now.Sub(bar.Bucket.Add(b.width)) >= grace {
			done = append(done, bar)
			delete(b.open, sym)
		}
	}
	sortBars(done)
	return done
}

// Drain returns every open bar regardless of age. Shutdown path only.
func (b *CandleBuilder) Drain() []*models.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	done := make([]*models.Candle, 0, len(b.open))
	for sym, bar := range b.open {
		done = append(done, bar)
		delete(b.open, sym)
	}
	sortBars(done)
	return done
}

// OpenBars reports how many symbols have a bar under construction.
func (b *CandleBuilder) OpenBars() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func newBar(t *models.Tick, bucket time.Time) *models.Candle {
	return &models.Candle{
		Bucket: bucket,
		Symbol: t.Symbol,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Qty,
	}
}

func sortBars(bars []*models.Candle) {
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Bucket.Equal(bars[j].Bucket) {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Bucket.Before(bars[j].Bucket)
	})
}
