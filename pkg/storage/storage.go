// Package storage defines interfaces for persisting flushed event batches.
//
// This package provides abstractions over the durable store the ingestion
// buffer writes to (PostgreSQL, object storage, local filesystem).
package storage

import (
	"context"

	"github.com/jittakal/eventbuffer/pkg/event"
)

// Store persists batches of events.
type Store interface {
	// InsertEventsBatch inserts events and returns how many were stored.
	// A count lower than len(events) with a nil error is a partial success.
	// Retries may resubmit the same batch; implementations are not required
	// to deduplicate.
	InsertEventsBatch(ctx context.Context, events []*event.Event) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Writer writes encoded record files to a storage backend.
type Writer interface {
	// Write writes records to storage at the specified path.
	// Returns the number of bytes written.
	Write(ctx context.Context, records []event.Record, path string, format event.FileFormat) (int64, error)

	// Close closes the writer and releases resources.
	Close() error
}

// Router determines storage paths for archived batches.
type Router interface {
	// Route returns the storage directory for records of the given kind.
	// timestamp is the Unix time (seconds) of the first record in the group.
	Route(category event.Category, variant string, timestamp int64) string
}
