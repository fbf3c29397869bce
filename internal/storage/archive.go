package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

var _ storage.Store = (*ArchiveStore)(nil)

// ArchiveConfig configures an ArchiveStore.
type ArchiveConfig struct {
	Format event.FileFormat
	Policy PolicyConfig
	// MaxConcurrentWrites bounds the files written in parallel for one batch.
	MaxConcurrentWrites int
}

// ArchiveStore implements storage.Store by writing each batch as encoded
// files through a Writer. A batch is grouped by category and variant, each
// group routed to its own directory and split into files by the policy.
type ArchiveStore struct {
	writer      storage.Writer
	router      storage.Router
	policy      *SplitPolicy
	format      event.FileFormat
	concurrency int
	logger      *slog.Logger
	metrics     MetricsCollector
	now         func() time.Time
}

// NewArchiveStore creates an archive store over writer.
func NewArchiveStore(
	writer storage.Writer,
	router storage.Router,
	cfg ArchiveConfig,
	logger *slog.Logger,
	metrics MetricsCollector,
) *ArchiveStore {
	if cfg.MaxConcurrentWrites <= 0 {
		cfg.MaxConcurrentWrites = 4
	}
	if cfg.Format == "" {
		cfg.Format = event.FormatParquet
	}
	return &ArchiveStore{
		writer:      writer,
		router:      router,
		policy:      NewSplitPolicy(cfg.Policy),
		format:      cfg.Format,
		concurrency: cfg.MaxConcurrentWrites,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// recordGroup is every record of one category/variant in a batch.
type recordGroup struct {
	category event.Category
	variant  string
	records  []event.Record
}

// InsertEventsBatch archives events and returns the number of records in
// files that were written. Failed files reduce the count; the batch fails
// with an error only when nothing was written.
func (s *ArchiveStore) InsertEventsBatch(ctx context.Context, events []*event.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	groups := s.group(events)

	var written atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(s.concurrency)
	for _, g := range groups {
		dir := s.router.Route(g.category, g.variant, g.records[0].GetEventTimeUnix())
		for _, chunk := range s.policy.Split(g.records) {
			p.Go(func() error {
				if _, err := s.writer.Write(ctx, chunk, dir, s.format); err != nil {
					s.logger.Error("failed to write archive file",
						"path", dir,
						"records", len(chunk),
						"error", err,
					)
					return err
				}
				written.Add(int64(len(chunk)))
				return nil
			})
		}
	}
	err := p.Wait()

	n := int(written.Load())
	if s.metrics != nil && n > 0 {
		s.metrics.AddRowsInserted("archive", float64(n))
	}

	if n == 0 && err != nil {
		return 0, fmt.Errorf("archive batch of %d events: %w", len(events), err)
	}
	return n, nil
}

// group builds records and buckets them by kind, in first-seen order.
func (s *ArchiveStore) group(events []*event.Event) []*recordGroup {
	ingestedAt := s.now()
	index := make(map[string]*recordGroup)
	var groups []*recordGroup

	for _, e := range events {
		if e == nil {
			continue
		}
		rec, err := event.NewRecord(e, ingestedAt)
		if err != nil {
			s.logger.Warn("skipping unencodable event", "event_id", e.ID, "error", err)
			continue
		}
		key := e.Kind()
		g, ok := index[key]
		if !ok {
			g = &recordGroup{category: rec.Category, variant: rec.Variant}
			index[key] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, rec)
	}
	return groups
}

// Close closes the underlying writer.
func (s *ArchiveStore) Close() error {
	return s.writer.Close()
}
