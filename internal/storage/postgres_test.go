package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/event"
)

type fakeCopier struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
	err     error
	closed  bool
}

func (c *fakeCopier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.table = table
	c.columns = columns
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.rows = append(c.rows, values)
	}
	return int64(len(c.rows)), src.Err()
}

func (c *fakeCopier) Close() { c.closed = true }

func TestPostgresStore_InsertEventsBatch(t *testing.T) {
	copier := &fakeCopier{}
	metrics := newMockMetrics()
	s := newPostgresStore(copier, "events", testLogger(), metrics)

	login := loginEvent("1")
	login.Attributes = map[string]string{"region": "eu"}
	events := []*event.Event{login, alertEvent("2"), {ID: "no-payload"}}

	n, err := s.InsertEventsBatch(context.Background(), events)
	if err != nil {
		t.Fatalf("InsertEventsBatch() error = %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2 (event without payload is skipped)", n)
	}

	if copier.table.Sanitize() != `"events"` {
		t.Errorf("table = %s", copier.table.Sanitize())
	}
	if len(copier.columns) != len(eventColumns) {
		t.Errorf("columns = %v", copier.columns)
	}

	first := copier.rows[0]
	if first[0] != "1" || first[1] != "user" || first[2] != "login" {
		t.Errorf("row header = %v", first[:3])
	}
	if attrs, _ := first[5].([]byte); string(attrs) != `{"region":"eu"}` {
		t.Errorf("attributes = %s", attrs)
	}
	if attrs, _ := copier.rows[1][5].([]byte); attrs != nil {
		t.Errorf("empty attributes should be NULL, got %s", attrs)
	}

	if metrics.rowsInserted["events"] != 2 {
		t.Errorf("rows inserted metric = %v, want 2", metrics.rowsInserted["events"])
	}
}

func TestPostgresStore_CopyError(t *testing.T) {
	copier := &fakeCopier{err: errors.New("connection reset")}
	metrics := newMockMetrics()
	s := newPostgresStore(copier, "events", testLogger(), metrics)

	n, err := s.InsertEventsBatch(context.Background(), []*event.Event{loginEvent("1")})
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}

	var storageErr *apperrors.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want StorageError", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Error("copy failure should be retryable")
	}
	if metrics.lastErrorBackend != "postgres" || metrics.lastErrorOperation != "copy" {
		t.Errorf("error labels = %s/%s", metrics.lastErrorBackend, metrics.lastErrorOperation)
	}
}

func TestPostgresStore_Close(t *testing.T) {
	copier := &fakeCopier{}
	s := newPostgresStore(copier, "events", testLogger(), nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !copier.closed {
		t.Error("Close() should close the pool")
	}
}

func TestNewPostgresStore_RequiresDSN(t *testing.T) {
	if _, err := NewPostgresStore(context.Background(), PostgresConfig{}, testLogger(), nil); err == nil {
		t.Error("expected error for empty dsn")
	}
}
