// Package circuitbreaker gates event admission on the health of the store.
//
// The breaker has two states. It opens when the number of consecutive store
// failures reaches the threshold and closes lazily on the first IsOpen query
// made after the cooldown has elapsed since the last failure. There is no
// background timer.
//
// Two success signals are kept apart. RecordAcceptSuccess is sent for every
// admitted event and only clears a non-zero error count. RecordStoreSuccess is
// sent after a confirmed store write and force-closes the breaker.
package circuitbreaker

import (
	"sync/atomic"
	"time"
)

// CircuitBreaker is safe for concurrent use. All state lives in atomics; no
// cross-field consistency is provided.
type CircuitBreaker struct {
	open              atomic.Bool
	consecutiveErrors atomic.Uint32
	lastErrorUnixNano atomic.Int64

	threshold uint32
	cooldown  time.Duration
	now       func() time.Time
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// New creates a closed breaker. A zero threshold is treated as 1.
func New(threshold uint32, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	if threshold == 0 {
		threshold = 1
	}
	cb := &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// IsOpen reports whether admission is blocked. An open breaker whose cooldown
// has elapsed is closed by this call and its error count reset.
func (cb *CircuitBreaker) IsOpen() bool {
	if !cb.open.Load() {
		return false
	}

	last := time.Unix(0, cb.lastErrorUnixNano.Load())
	if cb.now().Sub(last) < cb.cooldown {
		return true
	}

	if cb.open.CompareAndSwap(true, false) {
		cb.consecutiveErrors.Store(0)
	}
	return false
}

// RecordFailure counts a store failure. It returns true when this call moved
// the breaker from closed to open.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.lastErrorUnixNano.Store(cb.now().UnixNano())
	n := cb.consecutiveErrors.Add(1)
	if n < cb.threshold {
		return false
	}
	return cb.open.CompareAndSwap(false, true)
}

// RecordAcceptSuccess clears the error count. It never closes an open breaker.
func (cb *CircuitBreaker) RecordAcceptSuccess() {
	if cb.consecutiveErrors.Load() != 0 {
		cb.consecutiveErrors.Store(0)
	}
}

// RecordStoreSuccess closes the breaker and clears the error count. It returns
// true when the breaker was open.
func (cb *CircuitBreaker) RecordStoreSuccess() bool {
	cb.consecutiveErrors.Store(0)
	return cb.open.Swap(false)
}

// ConsecutiveErrors returns the current error count.
func (cb *CircuitBreaker) ConsecutiveErrors() uint32 {
	return cb.consecutiveErrors.Load()
}

// State returns "open" or "closed" without triggering a lazy close.
func (cb *CircuitBreaker) State() string {
	if cb.open.Load() {
		return "open"
	}
	return "closed"
}
