package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jittakal/eventbuffer/internal/config/dto"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("expected non-nil loader")
	}
	if loader.v == nil {
		t.Fatal("expected non-nil viper instance")
	}
}

func TestLoader_LoadWithValidConfig(t *testing.T) {
	path := writeConfig(t, `
application:
  name: test-app
  version: 1.0.0

buffer:
  batch_size: 250
  flush_interval: 500ms
  channel_capacity: 2000

store:
  backend: postgres
  postgres:
    dsn: postgres://localhost:5432/events

bus:
  enabled: true
  backend: kafka
  kafka:
    bootstrap_servers:
      - localhost:9092
    topic: ingest-events

ingest:
  kafka:
    enabled: true
    bootstrap_servers:
      - localhost:9092
    group_id: test-group
    topics:
      - test-topic
`)

	config, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Application.Name != "test-app" {
		t.Errorf("Application.Name = %s, want test-app", config.Application.Name)
	}
	if config.Buffer.BatchSize != 250 {
		t.Errorf("Buffer.BatchSize = %d, want 250", config.Buffer.BatchSize)
	}
	if config.Buffer.FlushInterval != 500*time.Millisecond {
		t.Errorf("Buffer.FlushInterval = %s, want 500ms", config.Buffer.FlushInterval)
	}
	if config.Buffer.MemoryLimitBytes != 268435456 {
		t.Errorf("Buffer.MemoryLimitBytes = %d, want default", config.Buffer.MemoryLimitBytes)
	}
	if config.Store.Postgres.Table != "events" {
		t.Errorf("Store.Postgres.Table = %s, want events", config.Store.Postgres.Table)
	}
	if config.Bus.Kafka.Topic != "ingest-events" || len(config.Bus.Kafka.BootstrapServers) != 1 {
		t.Errorf("Bus.Kafka = %+v", config.Bus.Kafka)
	}
	if config.Ingest.Kafka.GroupID != "test-group" {
		t.Errorf("Ingest.Kafka.GroupID = %s, want test-group", config.Ingest.Kafka.GroupID)
	}
	if len(config.Ingest.Kafka.Topics) != 1 || config.Ingest.Kafka.Topics[0] != "test-topic" {
		t.Errorf("Ingest.Kafka.Topics = %v, want [test-topic]", config.Ingest.Kafka.Topics)
	}
}

func TestLoader_LoadWithMissingFile(t *testing.T) {
	config, err := NewLoader().Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, defaults should be valid", err)
	}
	if config.Store.Backend != "file" {
		t.Errorf("Store.Backend = %s, want file", config.Store.Backend)
	}
}

func TestLoader_LoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_PG_DSN", "postgres://user:secret@db:5432/events")
	path := writeConfig(t, `
store:
  backend: postgres
  postgres:
    dsn: ${TEST_PG_DSN}
`)

	config, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Store.Postgres.DSN != "postgres://user:secret@db:5432/events" {
		t.Errorf("Store.Postgres.DSN = %s", config.Store.Postgres.DSN)
	}
}

func TestLoader_LoadEnvOverride(t *testing.T) {
	t.Setenv("APP_BUFFER_BATCH_SIZE", "42")
	t.Setenv("APP_CIRCUIT_BREAKER_COOLDOWN", "5s")

	config, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Buffer.BatchSize != 42 {
		t.Errorf("Buffer.BatchSize = %d, want 42", config.Buffer.BatchSize)
	}
	if config.CircuitBreaker.Cooldown != 5*time.Second {
		t.Errorf("CircuitBreaker.Cooldown = %s, want 5s", config.CircuitBreaker.Cooldown)
	}
}

func TestLoader_LoadInvalid(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: s3
`)
	if _, err := NewLoader().Load(path); err == nil {
		t.Error("Load() expected validation error for s3 without bucket")
	}
}

func validConfig() *dto.ApplicationConfig {
	return &dto.ApplicationConfig{
		Application:    dto.ApplicationInfo{Name: "event-buffer"},
		Buffer:         dto.BufferConfig{BatchSize: 500, FlushInterval: time.Second, ChannelCapacity: 10000, MemoryLimitBytes: 1 << 28},
		CircuitBreaker: dto.CircuitBreakerConfig{ErrorThreshold: 5, Cooldown: 30 * time.Second},
		Retry:          dto.RetryConfig{MaxAttempts: 10, InitialDelay: 100 * time.Millisecond, MaxDelay: 30 * time.Second},
		Store: dto.StoreConfig{
			Backend: "file",
			Format:  "parquet",
			File:    dto.FileConfig{BasePath: "/tmp/test"},
		},
		Bus: dto.BusConfig{Stream: "ingest"},
		Observability: dto.ObservabilityConfig{
			Metrics: dto.MetricsConfig{Port: 9090},
			Health:  dto.HealthConfig{Port: 8080},
		},
	}
}

func TestLoader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *dto.ApplicationConfig)
		wantErr bool
	}{
		{name: "valid file backend config", mutate: func(*dto.ApplicationConfig) {}},
		{
			name: "valid postgres backend ignores format",
			mutate: func(c *dto.ApplicationConfig) {
				c.Store.Backend = "postgres"
				c.Store.Format = ""
				c.Store.Postgres.DSN = "postgres://localhost/events"
			},
		},
		{name: "zero batch size", mutate: func(c *dto.ApplicationConfig) { c.Buffer.BatchSize = 0 }, wantErr: true},
		{name: "zero flush interval", mutate: func(c *dto.ApplicationConfig) { c.Buffer.FlushInterval = 0 }, wantErr: true},
		{name: "zero channel capacity", mutate: func(c *dto.ApplicationConfig) { c.Buffer.ChannelCapacity = 0 }, wantErr: true},
		{name: "zero memory limit", mutate: func(c *dto.ApplicationConfig) { c.Buffer.MemoryLimitBytes = 0 }, wantErr: true},
		{name: "zero error threshold", mutate: func(c *dto.ApplicationConfig) { c.CircuitBreaker.ErrorThreshold = 0 }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *dto.ApplicationConfig) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{
			name:    "max delay below initial delay",
			mutate:  func(c *dto.ApplicationConfig) { c.Retry.MaxDelay = time.Millisecond },
			wantErr: true,
		},
		{name: "postgres without dsn", mutate: func(c *dto.ApplicationConfig) { c.Store.Backend = "postgres" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *dto.ApplicationConfig) { c.Store.Backend = "s3" }, wantErr: true},
		{name: "azure without account", mutate: func(c *dto.ApplicationConfig) { c.Store.Backend = "azure" }, wantErr: true},
		{name: "gcs without bucket", mutate: func(c *dto.ApplicationConfig) { c.Store.Backend = "gcs" }, wantErr: true},
		{name: "file without base path", mutate: func(c *dto.ApplicationConfig) { c.Store.File.BasePath = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *dto.ApplicationConfig) { c.Store.Backend = "ftp" }, wantErr: true},
		{name: "unknown format", mutate: func(c *dto.ApplicationConfig) { c.Store.Format = "csv" }, wantErr: true},
		{
			name: "unsupported compression",
			mutate: func(c *dto.ApplicationConfig) {
				c.Store.Format = "avro"
				c.Store.Compression = "zstd"
			},
			wantErr: true,
		},
		{
			name: "bus kafka without brokers",
			mutate: func(c *dto.ApplicationConfig) {
				c.Bus.Enabled = true
				c.Bus.Backend = "kafka"
				c.Bus.PublishTimeout = time.Second
				c.Bus.PublishConcurrency = 1
			},
			wantErr: true,
		},
		{
			name: "bus nats valid",
			mutate: func(c *dto.ApplicationConfig) {
				c.Bus.Enabled = true
				c.Bus.Backend = "nats"
				c.Bus.NATS.URL = "nats://localhost:4222"
				c.Bus.PublishTimeout = time.Second
				c.Bus.PublishConcurrency = 1
			},
		},
		{
			name: "bus without publish timeout",
			mutate: func(c *dto.ApplicationConfig) {
				c.Bus.Enabled = true
				c.Bus.Backend = "nats"
				c.Bus.NATS.URL = "nats://localhost:4222"
				c.Bus.PublishConcurrency = 1
			},
			wantErr: true,
		},
		{
			name:    "kafka source without group",
			mutate:  func(c *dto.ApplicationConfig) { c.Ingest.Kafka.Enabled = true },
			wantErr: true,
		},
		{name: "invalid metrics port", mutate: func(c *dto.ApplicationConfig) { c.Observability.Metrics.Port = 0 }, wantErr: true},
		{name: "invalid health port", mutate: func(c *dto.ApplicationConfig) { c.Observability.Health.Port = 70000 }, wantErr: true},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			if err := loader.Validate(config); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_setDefaults(t *testing.T) {
	loader := NewLoader()
	loader.setDefaults()

	tests := []struct {
		key  string
		want any
	}{
		{"application.name", "event-buffer"},
		{"buffer.batch_size", 500},
		{"buffer.flush_interval", "1s"},
		{"buffer.channel_capacity", 10000},
		{"circuit_breaker.error_threshold", 5},
		{"retry.max_attempts", 10},
		{"store.backend", "file"},
		{"bus.enabled", false},
		{"bus.stream", "ingest"},
		{"bus.publish_concurrency", 16},
		{"observability.metrics.port", 9090},
		{"shutdown.grace_period", "30s"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := loader.v.Get(tt.key); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
