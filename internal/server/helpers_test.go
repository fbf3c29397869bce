package server

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockIngestor implements buffer.Ingestor for testing.
type mockIngestor struct {
	mu       sync.Mutex
	healthy  bool
	stats    buffer.Stats
	reject   func(e *event.Event) error
	accepted []*event.Event
}

func (m *mockIngestor) AddEvent(_ context.Context, e *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reject != nil {
		if err := m.reject(e); err != nil {
			return err
		}
	}
	m.accepted = append(m.accepted, e)
	return nil
}

func (m *mockIngestor) Stats() buffer.Stats { return m.stats }
func (m *mockIngestor) HealthCheck() bool   { return m.healthy }

const (
	loginJSON   = `{"id":"evt-1","source":"auth","category":"user","variant":"login","data":{"user_id":"u-1"}}`
	noIDJSON    = `{"source":"auth","category":"user","variant":"login","data":{"user_id":"u-2"}}`
	invalidJSON = `{"id":"evt-3","source":"auth","category":"user","variant":"login","data":{}}`
	unknownJSON = `{"id":"evt-4","source":"auth","category":"user","variant":"logout","data":{}}`
)
