package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

// Supported store backends.
const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendGCS      = "gcs"
	BackendAzure    = "azure"
)

// StoreConfig selects and configures the store the buffer flushes to.
type StoreConfig struct {
	Backend     string
	Format      event.FileFormat
	Compression string
	// BasePath prefixes archive paths inside the bucket or container.
	BasePath string
	Policy   PolicyConfig
	// MaxConcurrentWrites bounds parallel file writes per flushed batch.
	MaxConcurrentWrites int

	Postgres PostgresConfig
	File     FileConfig
	S3       S3Config
	GCS      GCSConfig
	Azure    AzureConfig
}

// Protocol returns the URI scheme used in archive paths for a backend.
func Protocol(backend string) string {
	switch backend {
	case BackendS3:
		return "s3"
	case BackendAzure:
		return "wasbs"
	case BackendGCS:
		return "gs"
	default:
		return "file"
	}
}

// bucket returns the bucket or container of an object backend.
func (c StoreConfig) bucket() string {
	switch c.Backend {
	case BackendS3:
		return c.S3.Bucket
	case BackendAzure:
		return c.Azure.ContainerName
	case BackendGCS:
		return c.GCS.Bucket
	default:
		return ""
	}
}

// NewStore builds the configured storage.Store.
func NewStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger, metrics MetricsCollector) (storage.Store, error) {
	if cfg.Backend == BackendPostgres {
		return NewPostgresStore(ctx, cfg.Postgres, logger, metrics)
	}

	writer, err := NewWriter(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	router := NewRouter(Protocol(cfg.Backend), cfg.bucket(), cfg.BasePath)
	return NewArchiveStore(writer, router, ArchiveConfig{
		Format:              cfg.Format,
		Policy:              cfg.Policy,
		MaxConcurrentWrites: cfg.MaxConcurrentWrites,
	}, logger, metrics), nil
}

// NewWriter builds the file writer for an archive backend.
func NewWriter(ctx context.Context, cfg StoreConfig, logger *slog.Logger, metrics MetricsCollector) (storage.Writer, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileWriter(cfg.File, cfg.Format, cfg.Compression, logger, metrics)
	case BackendS3:
		return NewS3Writer(ctx, cfg.S3, cfg.Format, cfg.Compression, logger, metrics)
	case BackendGCS:
		return NewGCSWriter(ctx, cfg.GCS, cfg.Format, cfg.Compression, logger, metrics)
	case BackendAzure:
		return NewAzureWriter(cfg.Azure, cfg.Format, cfg.Compression, logger, metrics)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
