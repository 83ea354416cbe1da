package usecase

import (
	"context"
	"sync"
	"time"

	"StrikeGate/internal/domain/models"
	drepo "StrikeGate/internal/domain/repository"
	mid "StrikeGate/internal/middleware"
	applogger "StrikeGate/pkg/logger"
)

// CollectorParams tunes the periodic candle flusher.
type CollectorParams struct {
	FlushInterval time.Duration
	FlushGrace    time.Duration
}

// TickCollector wires the market stream through the ingest pipeline into
// candle storage and keeps closed bars flushed on a timer.
type TickCollector struct {
	stream   drepo.MarketStream
	ingestor *CandleIngestor
	pipe     *mid.IngestPipeline
	metrics  drepo.Metrics
	logger   *applogger.Logger

	flushEvery time.Duration
	flushGrace time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewTickCollector(
	stream drepo.MarketStream,
	ingestor *CandleIngestor,
	pipe *mid.IngestPipeline,
	metrics drepo.Metrics,
	l *applogger.Logger,
	p CollectorParams,
) *TickCollector {
	if p.FlushInterval <= 0 {
		p.FlushInterval = 10 * time.Second
	}
	if p.FlushGrace <= 0 {
		p.FlushGrace = 2 * time.Second
	}
	return &TickCollector{
		stream:     stream,
		ingestor:   ingestor,
		pipe:       pipe,
		metrics:    metrics,
		logger:     l,
		flushEvery: p.FlushInterval,
		flushGrace: p.FlushGrace,
		stopCh:     make(chan struct{}),
	}
}

// IsConnected reports whether the market stream is up.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	go c.flushLoop(ctx)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				c.logger.Warn("market stream error, reconnecting", applogger.Error(err))
				_ = c.stream.Reconnect(ctx)
			}
		case t, ok := <-tickCh:
			if !ok {
				return
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.ingestor.Process(ctx, t)
			}
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

func (c *TickCollector) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := c.ingestor.FlushClosed(fctx, time.Now(), c.flushGrace); err != nil {
				c.logger.Warn("candle flush failed", applogger.Error(err))
			}
			cancel()
		}
	}
}

// Shutdown stops the pipeline, closes the stream, and drains open bars so the
// final bar of the session is not lost.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.pipe != nil {
		c.pipe.Stop()
	}
	err := c.stream.Close()
	if ferr := c.ingestor.FlushAll(ctx); ferr != nil {
		c.logger.Warn("drain on shutdown failed", applogger.Error(ferr))
		if err == nil {
			err = ferr
		}
	}
	return err
}
