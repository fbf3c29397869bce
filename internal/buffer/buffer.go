// Package buffer implements the admission front door and the background
// batch processor of the ingestion pipeline.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jittakal/eventbuffer/internal/circuitbreaker"
	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/internal/stats"
	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/bus"
	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ buffer.Ingestor = (*EventBuffer)(nil)

// Healthy buffers keep backpressure rejections below this share of accepted events.
const maxBackpressureRatio = 0.1

// MetricsCollector defines metrics operations for the buffer.
type MetricsCollector interface {
	IncAdmissionRejected(reason string)
	IncFlush(status string)
	ObserveFlushBatchSize(size float64)
	ObserveFlushDuration(duration float64)
	IncStoreRetries()
	IncBusPublish(status string)
}

// EventBuffer admits events from concurrent producers into a bounded channel
// drained by a single batch processor.
type EventBuffer struct {
	cfg       Config
	events    chan item
	tokens    *tokenPool
	breaker   *circuitbreaker.CircuitBreaker
	stats     *stats.Stats
	processor *batchProcessor
	logger    *slog.Logger
	metrics   MetricsCollector

	// mu guards closed and the send on events; sending on a closed channel panics.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Option configures an EventBuffer.
type Option func(*options)

type options struct {
	breakerOpts []circuitbreaker.Option
	now         func() time.Time
}

// WithClock replaces the time source of the buffer and its circuit breaker.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
		o.breakerOpts = append(o.breakerOpts, circuitbreaker.WithClock(now))
	}
}

// New creates an EventBuffer and starts its batch processor. publisher may be
// nil, in which case flushed events are not republished.
func New(
	cfg Config,
	store storage.Store,
	publisher bus.Publisher,
	logger *slog.Logger,
	metrics MetricsCollector,
	opts ...Option,
) (*EventBuffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer config: %w", err)
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	events := make(chan item, cfg.ChannelCapacity)
	breaker := circuitbreaker.New(cfg.ErrorThreshold, cfg.Cooldown, o.breakerOpts...)
	st := stats.New()

	b := &EventBuffer{
		cfg:     cfg,
		events:  events,
		tokens:  newTokenPool(cfg.ChannelCapacity),
		breaker: breaker,
		stats:   st,
		logger:  logger,
		metrics: metrics,
	}
	b.processor = &batchProcessor{
		cfg:       cfg,
		events:    events,
		store:     store,
		publisher: publisher,
		breaker:   breaker,
		stats:     st,
		logger:    logger.With("component", "batch_processor"),
		metrics:   metrics,
		done:      make(chan struct{}),
		now:       o.now,
	}

	go b.processor.run()

	logger.Info("event buffer started",
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
		"channel_capacity", cfg.ChannelCapacity,
		"memory_limit_bytes", cfg.MemoryLimitBytes,
		"bus_enabled", publisher != nil,
	)

	return b, nil
}

// AddEvent admits e or returns an *errors.AdmissionError wrapping the reason.
// Acceptance means the event is queued; store and bus failures after that
// point are reported only through Stats.
func (b *EventBuffer) AddEvent(ctx context.Context, e *event.Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", apperrors.ErrInvalidEvent)
	}

	if b.breaker.IsOpen() {
		return b.reject(e, apperrors.ErrCircuitOpen)
	}

	size := int64(event.EstimateSize(e))
	if !b.stats.ReserveMemory(size, b.cfg.MemoryLimitBytes) {
		return b.reject(e, apperrors.ErrMemoryLimitExceeded)
	}

	timeout := b.cfg.admissionTimeout()
	tok, err := b.tokens.acquire(ctx, timeout)
	if err != nil {
		b.stats.ReleaseMemory(size)
		return b.reject(e, err)
	}

	if err := b.send(ctx, item{event: e, size: size, token: tok}, timeout); err != nil {
		tok.release()
		b.stats.ReleaseMemory(size)
		return b.reject(e, err)
	}

	b.stats.RecordAccepted()
	b.breaker.RecordAcceptSuccess()
	return nil
}

func (b *EventBuffer) send(ctx context.Context, it item, timeout time.Duration) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return apperrors.ErrChannelClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b.events <- it:
		return nil
	case <-timer.C:
		return apperrors.ErrSendTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", apperrors.ErrSendTimeout, ctx.Err())
	}
}

func (b *EventBuffer) reject(e *event.Event, err error) error {
	b.stats.RecordDropped()
	if apperrors.IsBackpressure(err) {
		b.stats.RecordBackpressure()
	}

	reason := apperrors.Reason(err)
	if b.metrics != nil {
		b.metrics.IncAdmissionRejected(reason)
	}
	b.logger.Debug("event rejected",
		"event_id", e.ID,
		"reason", reason,
	)
	return apperrors.NewAdmissionError(reason, e.ID, err)
}

// Stats returns a snapshot of the buffer counters and breaker state.
func (b *EventBuffer) Stats() buffer.Stats {
	return b.stats.Snapshot(b.breaker.IsOpen())
}

// HealthCheck is false while the breaker is open or memory is at the ceiling.
// Before the first accepted event it is always true; afterwards backpressure
// rejections must stay under 10% of accepted events.
func (b *EventBuffer) HealthCheck() bool {
	if b.breaker.IsOpen() {
		return false
	}
	if b.stats.MemoryBytes() >= b.cfg.MemoryLimitBytes {
		return false
	}

	accepted := b.stats.Accepted()
	if accepted == 0 {
		return true
	}
	return float64(b.stats.Backpressure()) < float64(accepted)*maxBackpressureRatio
}

// Available returns the number of free admission tokens.
func (b *EventBuffer) Available() int64 {
	return b.tokens.Available()
}

// Close stops admission, lets the processor flush what remains and waits for
// in-flight publishes. It is safe to call more than once.
func (b *EventBuffer) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.events)
		b.mu.Unlock()
		b.logger.Info("event buffer closing", "resident_events", b.stats.BufferSize())
	})

	select {
	case <-b.processor.done:
		b.logger.Info("event buffer closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for batch processor: %w", ctx.Err())
	}
}
