package buffer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jittakal/eventbuffer/pkg/bus"
	"github.com/jittakal/eventbuffer/pkg/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 4
	cfg.FlushInterval = time.Hour
	cfg.ChannelCapacity = 4
	cfg.MemoryLimitBytes = 1 << 20
	cfg.ErrorThreshold = 3
	cfg.MaxRetries = 3
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 5 * time.Millisecond
	cfg.PublishTimeout = time.Second
	return cfg
}

func testEvent(id string) *event.Event {
	return &event.Event{
		ID:      id,
		Source:  "test",
		Payload: event.UserLogin{UserID: "u-" + id, IP: "10.0.0.1"},
	}
}

var errStoreDown = errors.New("store unavailable")

// fakeStore records every batch it receives. When gate is set, each call
// blocks until the gate is closed.
type fakeStore struct {
	mu      sync.Mutex
	batches [][]*event.Event
	gate    chan struct{}
	insert  func(call int, events []*event.Event) (int, error)
	entered atomic.Int32
}

func (s *fakeStore) InsertEventsBatch(_ context.Context, events []*event.Event) (int, error) {
	s.entered.Add(1)
	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	s.batches = append(s.batches, append([]*event.Event(nil), events...))
	call := len(s.batches)
	insert := s.insert
	s.mu.Unlock()

	if insert != nil {
		return insert(call, events)
	}
	return len(events), nil
}

func (s *fakeStore) Close() error { return nil }

// open releases every current and future call blocked on the gate.
func (s *fakeStore) open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.gate:
	default:
		close(s.gate)
	}
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *fakeStore) batch(i int) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[i]
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type fakeMetrics struct {
	mu       sync.Mutex
	rejected map[string]int
	flushes  map[string]int
	retries  int
	publish  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		rejected: make(map[string]int),
		flushes:  make(map[string]int),
		publish:  make(map[string]int),
	}
}

func (m *fakeMetrics) IncAdmissionRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *fakeMetrics) IncFlush(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes[status]++
}

func (m *fakeMetrics) ObserveFlushBatchSize(float64) {}
func (m *fakeMetrics) ObserveFlushDuration(float64)  {}

func (m *fakeMetrics) IncStoreRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *fakeMetrics) IncBusPublish(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish[status]++
}

func (m *fakeMetrics) count(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}

func newTestBuffer(t *testing.T, cfg Config, store *fakeStore, pub *fakePublisher, metrics MetricsCollector) *EventBuffer {
	t.Helper()

	var publisher bus.Publisher
	if pub != nil {
		publisher = pub
	}

	b, err := New(cfg, store, publisher, testLogger(), metrics)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Close(ctx); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// blockingPublisher holds every publish until its context expires and
// tracks how many publishes run at once.
type blockingPublisher struct {
	inflight    atomic.Int32
	maxInflight atomic.Int32
	calls       atomic.Int32
}

func (p *blockingPublisher) Publish(ctx context.Context, _ string, _ []byte) error {
	p.calls.Add(1)
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		peak := p.maxInflight.Load()
		if n <= peak || p.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }
