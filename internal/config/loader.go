package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/jittakal/eventbuffer/internal/config/dto"
	"github.com/jittakal/eventbuffer/internal/encoder"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Only expand values that contain a ${...} reference
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "event-buffer")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Buffer defaults
	l.v.SetDefault("buffer.batch_size", 500)
	l.v.SetDefault("buffer.flush_interval", "1s")
	l.v.SetDefault("buffer.channel_capacity", 10000)
	l.v.SetDefault("buffer.memory_limit_bytes", 268435456)

	// Admission circuit breaker defaults
	l.v.SetDefault("circuit_breaker.error_threshold", 5)
	l.v.SetDefault("circuit_breaker.cooldown", "30s")

	// Retry defaults
	l.v.SetDefault("retry.max_attempts", 10)
	l.v.SetDefault("retry.initial_delay", "100ms")
	l.v.SetDefault("retry.max_delay", "30s")

	// Store defaults
	l.v.SetDefault("store.backend", "file")
	l.v.SetDefault("store.format", "parquet")
	l.v.SetDefault("store.max_concurrent_writes", 4)
	l.v.SetDefault("store.file.base_path", "./data")
	l.v.SetDefault("store.file_rotation.max_file_size_mb", 128)
	l.v.SetDefault("store.file_rotation.max_records_per_file", 100000)
	l.v.SetDefault("store.file_rotation.max_duration_seconds", 0)
	l.v.SetDefault("store.postgres.table", "events")
	l.v.SetDefault("store.postgres.migrate", true)
	l.v.SetDefault("store.postgres.max_conns", 10)
	l.v.SetDefault("store.s3.use_path_style", false)
	l.v.SetDefault("store.s3.sse_enabled", true)

	// Bus defaults
	l.v.SetDefault("bus.enabled", false)
	l.v.SetDefault("bus.backend", "nats")
	l.v.SetDefault("bus.stream", "ingest")
	l.v.SetDefault("bus.publish_timeout", "5s")
	l.v.SetDefault("bus.publish_concurrency", 16)
	l.v.SetDefault("bus.nats.url", "nats://127.0.0.1:4222")
	l.v.SetDefault("bus.nats.create_stream", true)
	l.v.SetDefault("bus.nats.max_reconnects", 60)
	l.v.SetDefault("bus.nats.reconnect_wait", "2s")
	l.v.SetDefault("bus.kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("bus.kafka.compression", "snappy")
	l.v.SetDefault("bus.kafka.max_retries", 3)
	l.v.SetDefault("bus.breaker.enabled", true)
	l.v.SetDefault("bus.breaker.max_failures", 5)
	l.v.SetDefault("bus.breaker.timeout", "30s")
	l.v.SetDefault("bus.breaker.max_requests", 1)

	// Ingest source defaults
	l.v.SetDefault("ingest.kafka.enabled", false)
	l.v.SetDefault("ingest.kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("ingest.kafka.auto_offset_reset", "earliest")
	l.v.SetDefault("ingest.kafka.max_poll_interval_ms", 300000)
	l.v.SetDefault("ingest.kafka.session_timeout_ms", 30000)
	l.v.SetDefault("ingest.kafka.heartbeat_interval_ms", 10000)
	l.v.SetDefault("ingest.kafka.admit_max_interval", "5s")

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")

	// Shutdown defaults
	l.v.SetDefault("shutdown.grace_period", "30s")
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	// Buffer validation
	if config.Buffer.BatchSize <= 0 {
		return fmt.Errorf("buffer.batch_size must be positive, got %d", config.Buffer.BatchSize)
	}
	if config.Buffer.FlushInterval <= 0 {
		return fmt.Errorf("buffer.flush_interval must be positive, got %s", config.Buffer.FlushInterval)
	}
	if config.Buffer.ChannelCapacity <= 0 {
		return fmt.Errorf("buffer.channel_capacity must be positive, got %d", config.Buffer.ChannelCapacity)
	}
	if config.Buffer.MemoryLimitBytes <= 0 {
		return fmt.Errorf("buffer.memory_limit_bytes must be positive, got %d", config.Buffer.MemoryLimitBytes)
	}
	if config.CircuitBreaker.ErrorThreshold == 0 {
		return errors.New("circuit_breaker.error_threshold must be positive")
	}
	if config.Retry.MaxAttempts == 0 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if config.Retry.MaxDelay < config.Retry.InitialDelay {
		return errors.New("retry.max_delay must not be less than retry.initial_delay")
	}

	// Store validation
	switch config.Store.Backend {
	case "postgres":
		if config.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for postgres backend")
		}
	case "s3":
		if config.Store.S3.Bucket == "" {
			return errors.New("store.s3.bucket is required for S3 backend")
		}
		if config.Store.S3.Region == "" {
			return errors.New("store.s3.region is required for S3 backend")
		}
	case "azure":
		if config.Store.Azure.AccountName == "" {
			return errors.New("store.azure.account_name is required for Azure backend")
		}
		if config.Store.Azure.Container == "" {
			return errors.New("store.azure.container is required for Azure backend")
		}
	case "gcs":
		if config.Store.GCS.Bucket == "" {
			return errors.New("store.gcs.bucket is required for GCS backend")
		}
	case "file":
		if config.Store.File.BasePath == "" {
			return errors.New("store.file.base_path is required for file backend")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", config.Store.Backend)
	}

	// Format validation
	if config.Store.Backend != "postgres" {
		format := event.FileFormat(config.Store.Format)
		if !slices.Contains(encoder.SupportedFormats(), format) {
			return fmt.Errorf("unsupported store format: %s", config.Store.Format)
		}
		if err := encoder.ValidateCompression(format, config.Store.Compression); err != nil {
			return fmt.Errorf("store.compression: %w", err)
		}
	}

	// Bus validation
	if config.Bus.Enabled {
		switch config.Bus.Backend {
		case "nats":
			if config.Bus.NATS.URL == "" {
				return errors.New("bus.nats.url is required for NATS backend")
			}
		case "kafka":
			if len(config.Bus.Kafka.BootstrapServers) == 0 {
				return errors.New("bus.kafka.bootstrap_servers is required for Kafka backend")
			}
		default:
			return fmt.Errorf("unsupported bus backend: %s", config.Bus.Backend)
		}
		if config.Bus.PublishTimeout <= 0 {
			return fmt.Errorf("bus.publish_timeout must be positive, got %s", config.Bus.PublishTimeout)
		}
		if config.Bus.PublishConcurrency <= 0 {
			return fmt.Errorf("bus.publish_concurrency must be positive, got %d", config.Bus.PublishConcurrency)
		}
	}

	// Ingest source validation
	if config.Ingest.Kafka.Enabled {
		if err := config.Ingest.Kafka.Validate(); err != nil {
			return fmt.Errorf("ingest.kafka: %w", err)
		}
	}

	// Port validation
	if config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", config.Observability.Metrics.Port)
	}
	if config.Observability.Health.Port < 1 || config.Observability.Health.Port > 65535 {
		return fmt.Errorf("invalid health port: %d", config.Observability.Health.Port)
	}

	return nil
}
