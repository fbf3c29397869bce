package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

// Ensure implementations satisfy interfaces.
var _ storage.Router = (*HiveRouter)(nil)

// HiveRouter implements Hive-style partitioning for archive paths.
type HiveRouter struct {
	protocol string
	bucket   string
	basePath string
}

// NewRouter creates a new storage router. For the file backend the bucket
// is typically empty and paths are relative to the writer's base path.
func NewRouter(protocol, bucket, basePath string) *HiveRouter {
	return &HiveRouter{
		protocol: protocol,
		bucket:   bucket,
		basePath: strings.Trim(basePath, "/"),
	}
}

// Route returns the directory for a group of records.
// Format: protocol://bucket/basePath/category/dt=YYYY-MM-DD/variant=V/
// The date comes from the event time of the first record in the group.
func (r *HiveRouter) Route(category event.Category, variant string, timestamp int64) string {
	date := time.Unix(timestamp, 0).UTC().Format("2006-01-02")

	segments := make([]string, 0, 4)
	if r.basePath != "" {
		segments = append(segments, r.basePath)
	}
	segments = append(segments,
		string(category),
		"dt="+date,
		"variant="+variant,
	)
	rel := strings.Join(segments, "/") + "/"

	if r.protocol == "file" || r.protocol == "" {
		return rel
	}
	return fmt.Sprintf("%s://%s/%s", r.protocol, r.bucket, rel)
}

// PolicyConfig configures how a routed group is split into files.
type PolicyConfig struct {
	MaxFileSizeMB      int64
	MaxRecordsPerFile  int
	MaxDurationSeconds int
}

// SplitPolicy decides where one archive file ends and the next begins.
// Limits of zero are disabled.
type SplitPolicy struct {
	maxSizeBytes int64
	maxRecords   int
	maxDuration  time.Duration
}

// NewSplitPolicy creates a split policy from config.
func NewSplitPolicy(config PolicyConfig) *SplitPolicy {
	return &SplitPolicy{
		maxSizeBytes: config.MaxFileSizeMB * 1024 * 1024,
		maxRecords:   config.MaxRecordsPerFile,
		maxDuration:  time.Duration(config.MaxDurationSeconds) * time.Second,
	}
}

// ShouldRotate reports whether a file with the given running stats is full.
// Duration is measured between the first and last event times in the file.
func (p *SplitPolicy) ShouldRotate(stats event.FileStats) bool {
	if p.maxSizeBytes > 0 && stats.SizeBytes >= p.maxSizeBytes {
		return true
	}
	if p.maxRecords > 0 && stats.RecordCount >= p.maxRecords {
		return true
	}
	if p.maxDuration > 0 && !stats.FirstWriteTime.IsZero() {
		if stats.LastWriteTime.Sub(stats.FirstWriteTime) >= p.maxDuration {
			return true
		}
	}
	return false
}

// Split cuts records into consecutive chunks, each closed as soon as it
// satisfies ShouldRotate. Sizes use the estimated in-memory record size.
// A nil policy returns records as a single chunk.
func (p *SplitPolicy) Split(records []event.Record) [][]event.Record {
	if len(records) == 0 {
		return nil
	}
	if p == nil {
		return [][]event.Record{records}
	}

	var (
		chunks [][]event.Record
		start  int
		stats  event.FileStats
	)
	for i := range records {
		t := records[i].GetEventTime()
		if stats.RecordCount == 0 {
			stats.FirstWriteTime = t
		}
		stats.RecordCount++
		stats.SizeBytes += int64(records[i].SizeBytes)
		stats.LastWriteTime = t

		if p.ShouldRotate(stats) {
			chunks = append(chunks, records[start:i+1])
			start = i + 1
			stats = event.FileStats{}
		}
	}
	if start < len(records) {
		chunks = append(chunks, records[start:])
	}
	return chunks
}
