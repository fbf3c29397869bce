// Package buffer provides the admission front door and background batch
// processor that sit between producers and the event store.
//
// # Admission
//
// EventBuffer.AddEvent runs three checks before an event is queued:
//
//  1. the circuit breaker must be closed
//  2. the event's estimated size must fit under the memory ceiling
//  3. an admission token must be available
//
// The estimate is reserved with a single atomic add that is undone when it
// passes the ceiling, so concurrent producers cannot overshoot it together.
// A reservation is returned if a later step rejects the event.
//
// Tokens are acquired with a tiered strategy. While more than an eighth of the
// pool is free, acquisition never blocks. Closer to capacity it may wait up
// to max(100ms, FlushInterval/10). An empty pool rejects immediately.
//
//	err := buf.AddEvent(ctx, e)
//	switch {
//	case errors.Is(err, apperrors.ErrCircuitOpen):
//	    // store is failing; shed load
//	case apperrors.IsBackpressure(err):
//	    // retry later
//	}
//
// Once AddEvent returns nil the event is owned by the buffer. Store and bus
// failures after that point show up only in Stats.
//
// # Batching
//
// A single goroutine owns the receiving end of the channel. It flushes when the
// batch reaches BatchSize or when the flush ticker fires with a non-empty batch.
// Before each flush it drains every event already queued, so BatchSize is a
// trigger rather than a cap.
//
// # Retry
//
// Store inserts are retried up to MaxRetries attempts. The delay before retry k
// is InitialRetryDelay for k == 1 and InitialRetryDelay*2^(k-1) plus up to
// InitialRetryDelay/2 of jitter afterwards, capped at MaxRetryDelay.
//
// # Circuit Breaker
//
// A batch that fails all attempts counts as one breaker failure. A batch that
// is stored, fully or partially, force-closes the breaker. Accepted events only
// clear the failure count.
//
// # Bus
//
// When a publisher is configured every flushed event is published to
// <stream>.events.<category>.<variant>, whatever the store outcome. Flushes
// hand events to a queue of ChannelCapacity served by PublishConcurrency
// workers. When the queue is full the event is not published and counts as a
// publish failure. Publishes are never retried and never affect the breaker.
//
// # Shutdown
//
// Close stops admission, flushes the remaining batch and waits for in-flight
// publishes.
package buffer
