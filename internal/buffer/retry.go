package buffer

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jittakal/eventbuffer/pkg/event"
)

// flushBackOff yields the delay before retry k (1-indexed):
//
//	k == 1: initial
//	k >= 2: min(max, initial*2^(k-1) + U[0, initial/2))
type flushBackOff struct {
	initial time.Duration
	max     time.Duration
	attempt int
	jitter  func(n int64) int64
}

var _ backoff.BackOff = (*flushBackOff)(nil)

func newFlushBackOff(initial, maxDelay time.Duration) *flushBackOff {
	return &flushBackOff{
		initial: initial,
		max:     maxDelay,
		jitter:  rand.Int64N,
	}
}

func (b *flushBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.delay(b.attempt)
}

func (b *flushBackOff) Reset() {
	b.attempt = 0
}

func (b *flushBackOff) delay(attempt int) time.Duration {
	if attempt <= 1 {
		return min(b.initial, b.max)
	}

	// 2^(attempt-1) overflows long before it matters; anything this large is capped.
	if attempt > 32 {
		return b.max
	}
	d := b.initial << (attempt - 1)
	if d <= 0 || d >= b.max {
		return b.max
	}

	if half := int64(b.initial / 2); half > 0 {
		d += time.Duration(b.jitter(half))
	}
	return min(d, b.max)
}

// insertWithRetry calls the store until it succeeds or maxRetries attempts
// have been made. Only the final error is returned.
func (p *batchProcessor) insertWithRetry(ctx context.Context, events []*event.Event) (int, error) {
	operation := func() (int, error) {
		return p.store.InsertEventsBatch(ctx, events)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(newFlushBackOff(p.cfg.InitialRetryDelay, p.cfg.MaxRetryDelay)),
		backoff.WithMaxTries(p.cfg.MaxRetries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.stats.RecordRetry()
			if p.metrics != nil {
				p.metrics.IncStoreRetries()
			}
			p.logger.Warn("store insert failed, retrying",
				"batch_size", len(events),
				"retry_in", next,
				"error", err,
			)
		}),
	)
}
