// Package bus defines the message bus contract used for best-effort
// republishing of flushed events.
package bus

import "context"

// Publisher publishes a payload to a subject.
// Implementations must be safe for concurrent use.
type Publisher interface {
	// Publish sends payload to subject. The context carries the publish timeout.
	Publish(ctx context.Context, subject string, payload []byte) error

	// Close flushes pending messages and releases resources.
	Close() error
}
