package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// eventColumns is the column order used for COPY.
var eventColumns = []string{
	"id", "category", "variant", "source", "event_time",
	"attributes", "data", "size_bytes", "ingested_at",
}

// PostgresConfig contains PostgreSQL store configuration.
type PostgresConfig struct {
	DSN      string
	Table    string
	Migrate  bool
	MaxConns int32
}

// copier is the subset of pgxpool.Pool the store needs.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// PostgresStore implements storage.Store with COPY into a single events table.
type PostgresStore struct {
	pool    copier
	table   string
	logger  *slog.Logger
	metrics MetricsCollector
	now     func() time.Time
}

// NewPostgresStore connects to PostgreSQL and optionally applies migrations.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *slog.Logger, metrics MetricsCollector) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "events"
	}

	if cfg.Migrate {
		if err := Migrate(ctx, cfg.DSN, logger); err != nil {
			return nil, err
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres store created",
		"table", cfg.Table,
		"max_conns", poolConfig.MaxConns,
		"migrate", cfg.Migrate,
	)

	return newPostgresStore(pool, cfg.Table, logger, metrics), nil
}

func newPostgresStore(pool copier, table string, logger *slog.Logger, metrics MetricsCollector) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		table:   table,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// InsertEventsBatch copies events into the table. Events whose payload
// cannot be encoded are skipped and reduce the returned count.
func (s *PostgresStore) InsertEventsBatch(ctx context.Context, events []*event.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	startTime := s.now()
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		row, err := eventRow(e, startTime)
		if err != nil {
			s.logger.Warn("skipping unencodable event", "event_id", e.ID, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		observeError(s.metrics, "postgres", "copy")
		return 0, &apperrors.StorageError{Operation: "insert", Path: s.table, Err: err}
	}

	if s.metrics != nil {
		s.metrics.AddRowsInserted(s.table, float64(n))
		s.metrics.ObserveStorageWriteDuration("postgres", time.Since(startTime).Seconds())
	}
	return int(n), nil
}

// eventRow builds a COPY row in eventColumns order.
func eventRow(e *event.Event, ingestedAt time.Time) ([]any, error) {
	rec, err := event.NewRecord(e, ingestedAt)
	if err != nil {
		return nil, err
	}

	var attributes []byte
	if len(rec.Attributes) > 0 {
		attributes, err = json.Marshal(rec.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attributes: %w", err)
		}
	}

	return []any{
		rec.ID,
		string(rec.Category),
		rec.Variant,
		rec.Source,
		rec.GetEventTime(),
		attributes,
		rec.Data,
		int32(rec.SizeBytes),
		rec.IngestedAt,
	}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.logger.Info("postgres store closed")
	return nil
}
