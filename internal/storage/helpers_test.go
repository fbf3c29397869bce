package storage

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jittakal/eventbuffer/pkg/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testTime = time.Date(2025, 12, 18, 10, 30, 0, 0, time.UTC)

func testRecords(n int) []event.Record {
	records := make([]event.Record, n)
	for i := range records {
		records[i] = event.Record{
			ID:         "evt-" + string(rune('a'+i)),
			Category:   event.CategoryUser,
			Variant:    event.VariantLogin,
			Source:     "auth",
			EventTime:  testTime.Add(time.Duration(i) * time.Second),
			Data:       []byte(`{"user_id":"u-1"}`),
			SizeBytes:  100,
			IngestedAt: testTime,
		}
	}
	return records
}

func loginEvent(id string) *event.Event {
	return &event.Event{
		ID:      id,
		Source:  "auth",
		Time:    testTime,
		Payload: event.UserLogin{UserID: "u-" + id},
	}
}

func alertEvent(id string) *event.Event {
	return &event.Event{
		ID:      id,
		Source:  "monitor",
		Time:    testTime,
		Payload: event.SystemAlert{Service: "api", Severity: "high", Summary: "down"},
	}
}

// mockMetricsCollector implements MetricsCollector for testing.
type mockMetricsCollector struct {
	mu                 sync.Mutex
	filesWritten       int
	fileSizes          []float64
	storageDurations   map[string]int
	storageErrors      int
	rowsInserted       map[string]float64
	lastCategory       string
	lastFormat         string
	lastFileStatus     string
	lastErrorBackend   string
	lastErrorOperation string
}

func newMockMetrics() *mockMetricsCollector {
	return &mockMetricsCollector{
		storageDurations: make(map[string]int),
		rowsInserted:     make(map[string]float64),
	}
}

func (m *mockMetricsCollector) IncFilesWritten(category string, format string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filesWritten++
	m.lastCategory = category
	m.lastFormat = format
	m.lastFileStatus = status
}

func (m *mockMetricsCollector) ObserveFileSize(category string, format string, size float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileSizes = append(m.fileSizes, size)
}

func (m *mockMetricsCollector) ObserveStorageWriteDuration(backend string, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageDurations[backend]++
}

func (m *mockMetricsCollector) IncStorageErrors(backend string, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageErrors++
	m.lastErrorBackend = backend
	m.lastErrorOperation = operation
}

func (m *mockMetricsCollector) AddRowsInserted(table string, count float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsInserted[table] += count
}

// writeCall is one Write received by fakeWriter.
type writeCall struct {
	path    string
	records []event.Record
	format  event.FileFormat
}

// fakeWriter records writes. fail decides per path whether a write errors.
type fakeWriter struct {
	mu     sync.Mutex
	calls  []writeCall
	fail   func(path string) error
	closed bool
}

func (w *fakeWriter) Write(_ context.Context, records []event.Record, path string, format event.FileFormat) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		if err := w.fail(path); err != nil {
			return 0, err
		}
	}
	w.calls = append(w.calls, writeCall{path: path, records: records, format: format})
	return int64(len(records) * 10), nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) callsByPath() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int)
	for _, c := range w.calls {
		out[c.path] += len(c.records)
	}
	return out
}
