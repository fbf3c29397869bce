// Package stats holds the lock-free counters shared by the admission path and
// the flush path of the event buffer.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/jittakal/eventbuffer/pkg/buffer"
)

// Stats is a set of independent atomic counters. Snapshot reads each field
// separately, so a snapshot may show read skew between fields.
type Stats struct {
	accepted        atomic.Uint64
	processed       atomic.Uint64
	errors          atomic.Uint64
	dropped         atomic.Uint64
	retries         atomic.Uint64
	backpressure    atomic.Uint64
	publishFailures atomic.Uint64

	bufferSize  atomic.Int64
	memoryBytes atomic.Int64
	lastFlush   atomic.Int64
}

// New returns zeroed counters.
func New() *Stats {
	return &Stats{}
}

// RecordAccepted counts an admitted event. Its memory is reserved beforehand
// with ReserveMemory.
func (s *Stats) RecordAccepted() {
	s.accepted.Add(1)
	s.bufferSize.Add(1)
}

// ReserveMemory adds sizeBytes to the resident memory unless the total would
// exceed limit, in which case nothing is held and false is returned.
func (s *Stats) ReserveMemory(sizeBytes, limit int64) bool {
	if s.memoryBytes.Add(sizeBytes) > limit {
		s.memoryBytes.Add(-sizeBytes)
		return false
	}
	return true
}

// ReleaseMemory returns a reservation that did not lead to an admission.
func (s *Stats) ReleaseMemory(sizeBytes int64) {
	s.memoryBytes.Add(-sizeBytes)
}

// RecordDropped counts an event rejected at admission.
func (s *Stats) RecordDropped() {
	s.dropped.Add(1)
}

// RecordBackpressure counts a capacity-related rejection. The caller records
// the drop separately.
func (s *Stats) RecordBackpressure() {
	s.backpressure.Add(1)
}

// RecordRetry counts one store retry.
func (s *Stats) RecordRetry() {
	s.retries.Add(1)
}

// RecordPublishFailure counts one failed bus publish.
func (s *Stats) RecordPublishFailure() {
	s.publishFailures.Add(1)
}

// RecordFlushSuccess accounts for a flush where inserted of submitted events
// reached the store. The remainder is counted as dropped.
func (s *Stats) RecordFlushSuccess(submitted, inserted int, at time.Time) {
	if inserted > submitted {
		inserted = submitted
	}
	if inserted < 0 {
		inserted = 0
	}
	s.processed.Add(uint64(inserted))
	if missing := submitted - inserted; missing > 0 {
		s.dropped.Add(uint64(missing))
	}
	s.lastFlush.Store(at.UnixMilli())
}

// RecordFlushFailure accounts for a batch that failed after all retries.
func (s *Stats) RecordFlushFailure(submitted int) {
	s.errors.Add(uint64(submitted))
	s.dropped.Add(uint64(submitted))
}

// Release removes a flushed batch from the resident counters.
func (s *Stats) Release(count int, memoryBytes int64) {
	s.bufferSize.Add(-int64(count))
	s.memoryBytes.Add(-memoryBytes)
}

// Accepted returns the total number of admitted events.
func (s *Stats) Accepted() uint64 { return s.accepted.Load() }

// Backpressure returns the number of capacity-related rejections.
func (s *Stats) Backpressure() uint64 { return s.backpressure.Load() }

// MemoryBytes returns the estimated bytes held by resident events.
func (s *Stats) MemoryBytes() int64 { return s.memoryBytes.Load() }

// BufferSize returns the number of resident events.
func (s *Stats) BufferSize() int64 { return s.bufferSize.Load() }

// Snapshot assembles a point-in-time copy of every counter.
func (s *Stats) Snapshot(circuitOpen bool) buffer.Stats {
	return buffer.Stats{
		TotalAccepted:      s.accepted.Load(),
		TotalProcessed:     s.processed.Load(),
		TotalErrors:        s.errors.Load(),
		TotalDropped:       s.dropped.Load(),
		TotalRetries:       s.retries.Load(),
		PublishFailures:    s.publishFailures.Load(),
		CurrentBufferSize:  s.bufferSize.Load(),
		CurrentMemoryBytes: s.memoryBytes.Load(),
		LastFlushUnixMilli: s.lastFlush.Load(),
		BackpressureEvents: s.backpressure.Load(),
		CircuitBreakerOpen: circuitOpen,
	}
}
