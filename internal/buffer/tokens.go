package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
)

// tokenPool hands out one admission token per unit of channel capacity.
// free mirrors the semaphore so the admission path can pick a strategy
// without touching the semaphore. The read and the acquire are not atomic
// together; a lost race is reported as ErrBackpressureRace.
type tokenPool struct {
	sem      *semaphore.Weighted
	capacity int64
	free     atomic.Int64
}

func newTokenPool(capacity int) *tokenPool {
	p := &tokenPool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
	p.free.Store(int64(capacity))
	return p
}

// token is released exactly once, after the batch holding its event is flushed.
type token struct {
	pool *tokenPool
	once sync.Once
}

func (t *token) release() {
	t.once.Do(func() {
		t.pool.sem.Release(1)
		t.pool.free.Add(1)
	})
}

// Available returns the number of free tokens.
func (p *tokenPool) Available() int64 {
	return p.free.Load()
}

// acquire takes one token using a tiered strategy:
//   - free > capacity/8: non-blocking only
//   - 1 <= free <= capacity/8: non-blocking, then blocking up to timeout
//   - free == 0: reject without waiting
func (p *tokenPool) acquire(ctx context.Context, timeout time.Duration) (*token, error) {
	free := p.free.Load()

	switch {
	case free <= 0:
		return nil, apperrors.ErrBackpressureFull

	case free > p.capacity/8:
		if !p.sem.TryAcquire(1) {
			return nil, apperrors.ErrBackpressureRace
		}

	default:
		if !p.sem.TryAcquire(1) {
			waitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := p.sem.Acquire(waitCtx, 1); err != nil {
				return nil, fmt.Errorf("%w: %w", apperrors.ErrBackpressureTimeout, err)
			}
		}
	}

	p.free.Add(-1)
	return &token{pool: p}, nil
}
