// Package buffer defines the admission contract exposed to transports.
//
// Transports (HTTP handlers, Kafka sources) hand events to an Ingestor and
// receive an immediate accept/reject answer. Everything after acceptance
// is fire-and-forget.
package buffer

import (
	"context"

	"github.com/jittakal/eventbuffer/pkg/event"
)

// Stats is a point-in-time view of the buffer counters. Fields are read
// independently and are not guaranteed to be mutually consistent.
type Stats struct {
	TotalAccepted      uint64 `json:"total_accepted"`
	TotalProcessed     uint64 `json:"total_processed"`
	TotalErrors        uint64 `json:"total_errors"`
	TotalDropped       uint64 `json:"total_dropped"`
	TotalRetries       uint64 `json:"total_retries"`
	PublishFailures    uint64 `json:"publish_failures"`
	CurrentBufferSize  int64  `json:"current_buffer_size"`
	CurrentMemoryBytes int64  `json:"current_memory_bytes"`
	BackpressureEvents uint64 `json:"backpressure_events"`
	LastFlushUnixMilli int64  `json:"last_flush_unix_milli"`
	CircuitBreakerOpen bool   `json:"circuit_breaker_open"`
}

// Ingestor accepts events from producers.
// All implementations must be safe for concurrent use.
type Ingestor interface {
	// AddEvent admits an event or returns an admission error.
	AddEvent(ctx context.Context, e *event.Event) error

	// Stats returns a snapshot of the buffer counters.
	Stats() Stats

	// HealthCheck reports whether the buffer is accepting work normally.
	HealthCheck() bool
}
