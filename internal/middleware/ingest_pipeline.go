package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
)

// Proc is the minimal downstream the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t *models.Tick) error
}

// IngestPipeline sits between the market feed and candle construction.
// It validates, throttles per symbol, optionally normalizes, and buffers
// ticks while the downstream is unavailable.
type IngestPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.Tick
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	lastSeen map[string]time.Time

	// optional symbol/price normalization hook
	transform func(*models.Tick) *models.Tick
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS caps accepted ticks per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the hold-back buffer used while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform installs a tick normalization hook, applied before validation
// of the transformed tick.
func WithTransform(fn func(*models.Tick) *models.Tick) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   50,
		bufSize:  2000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	return p
}

// Start launches background draining of buffered ticks.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.drain(ctx)
}

func (p *IngestPipeline) drain(ctx context.Context) {
	backoff := 50 * time.Millisecond
	for {
		select {
		case <-p.stopCh:
			return
		case t := <-p.bufCh:
			if t == nil {
				continue
			}
			if err := p.proc.Process(ctx, t); err != nil {
				if backoff < 2*time.Second {
					backoff *= 2
				}
				p.metrics.RecordError("pipeline_flush")
				select {
				case <-time.After(backoff):
				case <-p.stopCh:
					return
				}
				// requeue if space; drop otherwise
				select {
				case p.bufCh <- t:
				default:
					p.metrics.RecordError("pipeline_buffer_drop")
				}
			} else {
				backoff = 50 * time.Millisecond
			}
		}
	}
}

// Stop halts background draining.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards one tick, buffering it when the
// downstream errors.
func (p *IngestPipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(t.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Qty < 0 {
		return fmt.Errorf("bad price/qty")
	}
	return nil
}

// allow enforces a minimum gap between accepted ticks per symbol.
func (p *IngestPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[symbol] = now
		return true
	}
	return false
}
