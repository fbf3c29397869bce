package kafka

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const loginEnvelope = `{"id":"evt-1","source":"auth","category":"user","variant":"login","data":{"user_id":"u-1"}}`

// fakeIngestor answers AddEvent with add, or accepts when add is nil.
type fakeIngestor struct {
	mu       sync.Mutex
	add      func(call int, e *event.Event) error
	calls    int
	accepted []*event.Event
}

func (f *fakeIngestor) AddEvent(_ context.Context, e *event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.add != nil {
		if err := f.add(f.calls, e); err != nil {
			return err
		}
	}
	f.accepted = append(f.accepted, e)
	return nil
}

func (f *fakeIngestor) Stats() buffer.Stats { return buffer.Stats{} }
func (f *fakeIngestor) HealthCheck() bool   { return true }

type fakeSourceMetrics struct {
	mu       sync.Mutex
	consumed int
	rejected map[string]int
	assigned map[string]float64
}

func newFakeSourceMetrics() *fakeSourceMetrics {
	return &fakeSourceMetrics{rejected: make(map[string]int), assigned: make(map[string]float64)}
}

func (m *fakeSourceMetrics) IncMessagesConsumed(string, int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed++
}

func (m *fakeSourceMetrics) IncMessagesRejected(_ string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *fakeSourceMetrics) IncRebalances(string)                     {}
func (m *fakeSourceMetrics) ObserveRebalanceDuration(string, float64) {}

func (m *fakeSourceMetrics) SetPartitionsAssigned(topic string, count float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned[topic] = count
}

// fakeSession implements sarama.ConsumerGroupSession.
type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return map[string][]int32{"events": {0, 1}} }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

// fakeClaim implements sarama.ConsumerGroupClaim over a fixed set of messages.
type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func newFakeClaim(values ...string) *fakeClaim {
	c := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(values))}
	for i, v := range values {
		c.messages <- &sarama.ConsumerMessage{Topic: "events", Partition: 0, Offset: int64(i), Value: []byte(v)}
	}
	close(c.messages)
	return c
}

func (c *fakeClaim) Topic() string                            { return "events" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }
