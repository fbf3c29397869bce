package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jittakal/eventbuffer/pkg/encoder"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncFilesWritten(category string, format string, status string)
	ObserveFileSize(category string, format string, size float64)
	ObserveStorageWriteDuration(backend string, duration float64)
	IncStorageErrors(backend string, operation string)
	AddRowsInserted(table string, count float64)
}

// fileName returns a unique object name: events_YYYYMMDD_HHMMSS_mmm_<id><ext>.
func fileName(now time.Time, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("events_%s_%03d_%s%s",
		now.UTC().Format("20060102_150405"), now.Nanosecond()/int(time.Millisecond), id, ext)
}

// objectKey strips "<protocol>://<bucket>/" from a routed path and appends name.
// Paths without the protocol prefix are used as-is.
func objectKey(path, protocol, name string) string {
	key := path
	if rest, ok := strings.CutPrefix(path, protocol+"://"); ok {
		if _, after, found := strings.Cut(rest, "/"); found {
			key = after
		} else {
			key = ""
		}
	}
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return strings.TrimPrefix(key+name, "/")
}

// stage encodes records into a temporary file for upload. The caller must
// invoke cleanup once the upload is done.
func stage(enc encoder.Encoder, backend string, records []event.Record) (path string, stats *event.FileStats, cleanup func(), err error) {
	path = filepath.Join(os.TempDir(),
		fmt.Sprintf("%s-upload-%d%s", backend, time.Now().UnixNano(), enc.FileExtension()))
	cleanup = func() { _ = os.Remove(path) }

	stats, err = enc.Encode(path, records)
	if err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return path, stats, cleanup, nil
}

// observeWrite records the metrics of a successful file write.
func observeWrite(m MetricsCollector, backend string, records []event.Record, format event.FileFormat, stats *event.FileStats, elapsed time.Duration) {
	if m == nil || len(records) == 0 {
		return
	}
	category := string(records[0].Category)
	m.IncFilesWritten(category, string(format), "success")
	m.ObserveFileSize(category, string(format), float64(stats.SizeBytes))
	m.ObserveStorageWriteDuration(backend, elapsed.Seconds())
}

func observeError(m MetricsCollector, backend, operation string) {
	if m != nil {
		m.IncStorageErrors(backend, operation)
	}
}
