package main

import (
	"github.com/jittakal/eventbuffer/internal/buffer"
	"github.com/jittakal/eventbuffer/internal/bus"
	"github.com/jittakal/eventbuffer/internal/config/dto"
	"github.com/jittakal/eventbuffer/internal/encoder"
	"github.com/jittakal/eventbuffer/internal/kafka"
	"github.com/jittakal/eventbuffer/internal/observability"
	"github.com/jittakal/eventbuffer/internal/server"
	"github.com/jittakal/eventbuffer/internal/storage"
	"github.com/jittakal/eventbuffer/pkg/event"
)

func loggingConfig(cfg *dto.ApplicationConfig) observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:   cfg.Observability.Logging.Level,
		Format:  cfg.Observability.Logging.Format,
		Output:  cfg.Observability.Logging.Output,
		Service: cfg.Application.Name,
		Version: cfg.Application.Version,
	}
}

func bufferConfig(cfg *dto.ApplicationConfig) buffer.Config {
	c := buffer.DefaultConfig()
	c.BatchSize = cfg.Buffer.BatchSize
	c.FlushInterval = cfg.Buffer.FlushInterval
	c.ChannelCapacity = cfg.Buffer.ChannelCapacity
	c.MemoryLimitBytes = cfg.Buffer.MemoryLimitBytes
	c.ErrorThreshold = cfg.CircuitBreaker.ErrorThreshold
	c.Cooldown = cfg.CircuitBreaker.Cooldown
	c.MaxRetries = cfg.Retry.MaxAttempts
	c.InitialRetryDelay = cfg.Retry.InitialDelay
	c.MaxRetryDelay = cfg.Retry.MaxDelay
	if cfg.Bus.Stream != "" {
		c.Stream = cfg.Bus.Stream
	}
	if cfg.Bus.PublishTimeout > 0 {
		c.PublishTimeout = cfg.Bus.PublishTimeout
	}
	if cfg.Bus.PublishConcurrency > 0 {
		c.PublishConcurrency = cfg.Bus.PublishConcurrency
	}
	return c
}

// fileFormat resolves the archive format and its default compression.
func fileFormat(store dto.StoreConfig) (event.FileFormat, string) {
	format := event.FormatParquet
	if store.Format == "avro" {
		format = event.FormatAvro
	}

	compression := store.Compression
	if compression == "" {
		compression = encoder.DefaultCompression(format)
	}
	return format, compression
}

func storeConfig(cfg *dto.ApplicationConfig) storage.StoreConfig {
	s := cfg.Store
	format, compression := fileFormat(s)

	return storage.StoreConfig{
		Backend:     s.Backend,
		Format:      format,
		Compression: compression,
		BasePath:    s.BasePath,
		Policy: storage.PolicyConfig{
			MaxFileSizeMB:      s.FileRotation.MaxFileSizeMB,
			MaxRecordsPerFile:  s.FileRotation.MaxRecordsPerFile,
			MaxDurationSeconds: s.FileRotation.MaxDurationSeconds,
		},
		MaxConcurrentWrites: s.MaxConcurrentWrites,
		Postgres: storage.PostgresConfig{
			DSN:      s.Postgres.DSN,
			Table:    s.Postgres.Table,
			Migrate:  s.Postgres.Migrate,
			MaxConns: s.Postgres.MaxConns,
		},
		File: storage.FileConfig{
			BasePath: s.File.BasePath,
		},
		S3: storage.S3Config{
			Bucket:       s.S3.Bucket,
			Region:       s.S3.Region,
			Endpoint:     s.S3.Endpoint,
			UsePathStyle: s.S3.UsePathStyle,
			SSEEnabled:   s.S3.SSEEnabled,
			SSEKMSKeyID:  s.S3.SSEKMSKeyID,
		},
		GCS: storage.GCSConfig{
			Bucket:               s.GCS.Bucket,
			ProjectID:            s.GCS.ProjectID,
			CredentialsFile:      s.GCS.CredentialsFile,
			CredentialsJSON:      s.GCS.CredentialsJSON,
			Endpoint:             s.GCS.Endpoint,
			UseDefaultCredential: s.GCS.UseDefaultCredential,
		},
		Azure: storage.AzureConfig{
			AccountName:   s.Azure.AccountName,
			AccountKey:    s.Azure.AccountKey,
			ContainerName: s.Azure.Container,
			Endpoint:      s.Azure.Endpoint,
		},
	}
}

func securityConfig(sec dto.KafkaSecurityConfig) kafka.SecurityConfig {
	return kafka.SecurityConfig{
		SecurityProtocol:      sec.SecurityProtocol,
		SASLMechanism:         sec.SASLMechanism,
		SASLUsername:          sec.SASLUsername,
		SASLPassword:          sec.SASLPassword,
		AWSRegion:             sec.AWSRegion,
		TLSInsecureSkipVerify: sec.TLSInsecureSkipVerify,
	}
}

func busConfig(cfg *dto.ApplicationConfig) bus.Config {
	b := cfg.Bus
	return bus.Config{
		Backend: b.Backend,
		Stream:  b.Stream,
		NATS: bus.NATSConfig{
			URL:           b.NATS.URL,
			Name:          cfg.Application.Name,
			StreamName:    b.NATS.StreamName,
			CreateStream:  b.NATS.CreateStream,
			MaxReconnects: b.NATS.MaxReconnects,
			ReconnectWait: b.NATS.ReconnectWait,
		},
		Kafka: kafka.ProducerConfig{
			BootstrapServers: b.Kafka.BootstrapServers,
			Security:         securityConfig(b.Kafka.KafkaSecurityConfig),
			Topic:            b.Kafka.Topic,
			Compression:      b.Kafka.Compression,
			MaxRetries:       b.Kafka.MaxRetries,
		},
		Breaker: bus.GuardConfig{
			Enabled: b.Breaker.Enabled,
			BreakerConfig: bus.BreakerConfig{
				Name:        b.Backend,
				MaxFailures: b.Breaker.MaxFailures,
				Timeout:     b.Breaker.Timeout,
				MaxRequests: b.Breaker.MaxRequests,
			},
		},
	}
}

func sourceConfig(cfg *dto.ApplicationConfig) kafka.ConsumerConfig {
	k := cfg.Ingest.Kafka
	return kafka.ConsumerConfig{
		BootstrapServers:    k.BootstrapServers,
		GroupID:             k.GroupID,
		Topics:              k.Topics,
		Security:            securityConfig(k.KafkaSecurityConfig),
		AutoOffsetReset:     k.AutoOffsetReset,
		SessionTimeoutMS:    k.SessionTimeoutMS,
		HeartbeatIntervalMS: k.HeartbeatIntervalMS,
		MaxPollIntervalMS:   k.MaxPollIntervalMS,
		AdmitMaxInterval:    k.AdmitMaxInterval,
	}
}

func serverConfig(cfg *dto.ApplicationConfig) server.Config {
	o := cfg.Observability
	return server.Config{
		APIPort:        o.Health.Port,
		MetricsPort:    o.Metrics.Port,
		MetricsEnabled: o.Metrics.Enabled,
		MetricsPath:    o.Metrics.Path,
		LivenessPath:   o.Health.LivenessPath,
		ReadinessPath:  o.Health.ReadinessPath,
	}
}
