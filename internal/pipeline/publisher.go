package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
)

// BatchLoader writes multiple reading events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.ReadingEvent) error
}

// finalFlushTimeout bounds the single write attempted after shutdown.
const finalFlushTimeout = 5 * time.Second

// Publisher buffers reading events and writes them in batches. Enqueue never
// blocks the request path; events are dropped when the buffer is full.
type Publisher struct {
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	queue         chan domain.ReadingEvent
	batchSize     int
	flushInterval time.Duration
	running       atomic.Bool
}

// NewPublisher creates a Publisher with the given loader and batching limits.
func NewPublisher(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, buffer int) *Publisher {
	return &Publisher{
		loader:        l,
		logger:        logger,
		metrics:       metrics,
		queue:         make(chan domain.ReadingEvent, buffer),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Enqueue hands an event to the background loop. It reports false when the
// event was dropped.
func (p *Publisher) Enqueue(ev domain.ReadingEvent) bool {
	select {
	case p.queue <- ev:
		return true
	default:
		p.metrics.EventsDropped.Inc()
		p.logger.Warn("reading event dropped, publish buffer full", "event_id", ev.ID)
		return false
	}
}

// Running reports whether the publish loop is active.
func (p *Publisher) Running() bool {
	return p.running.Load()
}

// Run drains the queue until the context is cancelled, flushing whenever a
// batch fills up or the flush interval elapses. Pending events get one final
// write attempt on shutdown.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize, "flush_interval", p.flushInterval)
	p.running.Store(true)
	p.metrics.PublisherRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PublisherRunning.Set(0)
	}()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	batch := make([]domain.ReadingEvent, 0, p.batchSize)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher stopping", "reason", ctx.Err(), "pending", len(batch)+len(p.queue))
			p.finalFlush(ctx, batch)
			return nil
		case ev := <-p.queue:
			batch = append(batch, ev)
			if len(batch) < p.batchSize {
				continue
			}
		case <-ticker.C:
			if len(batch) == 0 {
				continue
			}
		}

		if !p.flush(ctx, batch, &backoff, maxBackoff) {
			p.finalFlush(ctx, batch)
			return nil
		}
		batch = batch[:0]
	}
}

// flush writes the batch, retrying with backoff until it succeeds. Returns
// false if the context was cancelled first.
func (p *Publisher) flush(ctx context.Context, batch []domain.ReadingEvent, backoff *time.Duration, maxBackoff time.Duration) bool {
	for {
		err := p.loader.LoadBatch(ctx, batch)
		if err == nil {
			p.metrics.EventsPublished.Add(float64(len(batch)))
			p.metrics.PublishBatchSize.Observe(float64(len(batch)))
			*backoff = 200 * time.Millisecond
			return true
		}

		p.metrics.PublishErrors.Inc()
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish batch failed", "error", err, "batch_size", len(batch), "retry_in", *backoff)
		if !sleepWithContext(ctx, *backoff) {
			return false
		}
		*backoff = nextBackoff(*backoff, maxBackoff)
	}
}

// finalFlush drains whatever is still queued and makes one bounded write
// attempt that outlives the cancelled run context.
func (p *Publisher) finalFlush(ctx context.Context, batch []domain.ReadingEvent) {
	for {
		select {
		case ev := <-p.queue:
			batch = append(batch, ev)
			continue
		default:
		}
		break
	}
	if len(batch) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
	defer cancel()

	if err := p.loader.LoadBatch(flushCtx, batch); err != nil {
		p.metrics.PublishErrors.Inc()
		p.metrics.EventsDropped.Add(float64(len(batch)))
		p.logger.Error("final publish failed, events dropped", "error", err, "batch_size", len(batch))
		return
	}
	p.metrics.EventsPublished.Add(float64(len(batch)))
	p.metrics.PublishBatchSize.Observe(float64(len(batch)))
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
