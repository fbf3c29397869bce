package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBusDown = errors.New("bus down")

// fakePublisher records publishes and fails while fail is set.
type fakePublisher struct {
	mu       sync.Mutex
	fail     bool
	subjects []string
	closed   bool
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	if p.fail {
		return errBusDown
	}
	return nil
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePublisher) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subjects)
}

type fakeBreakerMetrics struct {
	mu     sync.Mutex
	states []float64
}

func (m *fakeBreakerMetrics) SetBusBreakerState(_ string, state float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *fakeBreakerMetrics) IncMessagesProduced(string, string) {}

func (m *fakeBreakerMetrics) last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[len(m.states)-1]
}
