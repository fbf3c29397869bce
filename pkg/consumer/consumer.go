// Package consumer defines interfaces for event sources that feed the buffer.
//
// A source pulls events from an upstream system (Kafka topics) and hands
// them to a buffer.Ingestor.
package consumer

import (
	"context"
)

// Source reads events from an upstream system until the context is cancelled.
type Source interface {
	// Run consumes events and admits them into the ingestor. It blocks until
	// ctx is cancelled or the source fails.
	Run(ctx context.Context) error

	// Close closes the source and releases resources.
	Close() error
}
