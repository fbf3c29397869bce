package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application    ApplicationInfo      `mapstructure:"application"`
	Buffer         BufferConfig         `mapstructure:"buffer"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
	Store          StoreConfig          `mapstructure:"store"`
	Bus            BusConfig            `mapstructure:"bus"`
	Ingest         IngestConfig         `mapstructure:"ingest"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
	Shutdown       ShutdownConfig       `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BufferConfig contains admission and batching settings
type BufferConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
	ChannelCapacity  int           `mapstructure:"channel_capacity"`
	MemoryLimitBytes int64         `mapstructure:"memory_limit_bytes"`
}

// CircuitBreakerConfig contains the admission breaker settings
type CircuitBreakerConfig struct {
	ErrorThreshold uint32        `mapstructure:"error_threshold"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
}

// RetryConfig contains store retry settings
type RetryConfig struct {
	MaxAttempts  uint          `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// StoreConfig contains storage backend configuration
type StoreConfig struct {
	Backend             string             `mapstructure:"backend"`
	Format              string             `mapstructure:"format"`
	Compression         string             `mapstructure:"compression"`
	BasePath            string             `mapstructure:"base_path"`
	MaxConcurrentWrites int                `mapstructure:"max_concurrent_writes"`
	FileRotation        FileRotationConfig `mapstructure:"file_rotation"`
	Postgres            PostgresConfig     `mapstructure:"postgres"`
	File                FileConfig         `mapstructure:"file"`
	S3                  S3Config           `mapstructure:"s3"`
	Azure               AzureConfig        `mapstructure:"azure"`
	GCS                 GCSConfig          `mapstructure:"gcs"`
}

// PostgresConfig contains PostgreSQL store configuration
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	Migrate  bool   `mapstructure:"migrate"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Endpoint    string `mapstructure:"endpoint"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	Endpoint             string `mapstructure:"endpoint"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// FileRotationConfig bounds the size of archived files
type FileRotationConfig struct {
	MaxFileSizeMB      int64 `mapstructure:"max_file_size_mb"`
	MaxRecordsPerFile  int   `mapstructure:"max_records_per_file"`
	MaxDurationSeconds int   `mapstructure:"max_duration_seconds"`
}

// BusConfig contains republishing settings
type BusConfig struct {
	Enabled            bool             `mapstructure:"enabled"`
	Backend            string           `mapstructure:"backend"`
	Stream             string           `mapstructure:"stream"`
	PublishTimeout     time.Duration    `mapstructure:"publish_timeout"`
	PublishConcurrency int              `mapstructure:"publish_concurrency"`
	NATS               NATSConfig       `mapstructure:"nats"`
	Kafka              KafkaBusConfig   `mapstructure:"kafka"`
	Breaker            BusBreakerConfig `mapstructure:"breaker"`
}

// NATSConfig contains NATS JetStream settings
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	StreamName    string        `mapstructure:"stream_name"`
	CreateStream  bool          `mapstructure:"create_stream"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// KafkaSecurityConfig contains broker connection and authentication settings
type KafkaSecurityConfig struct {
	BootstrapServers      []string `mapstructure:"bootstrap_servers"`
	SecurityProtocol      string   `mapstructure:"security_protocol"`
	SASLMechanism         string   `mapstructure:"sasl_mechanism"`
	SASLUsername          string   `mapstructure:"sasl_username"`
	SASLPassword          string   `mapstructure:"sasl_password"`
	AWSRegion             string   `mapstructure:"aws_region"`
	TLSInsecureSkipVerify bool     `mapstructure:"tls_insecure_skip_verify"`
}

// KafkaBusConfig contains Kafka producer settings
type KafkaBusConfig struct {
	KafkaSecurityConfig `mapstructure:",squash"`
	Topic               string `mapstructure:"topic"`
	Compression         string `mapstructure:"compression"`
	MaxRetries          int    `mapstructure:"max_retries"`
}

// BusBreakerConfig contains the publish circuit breaker settings
type BusBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests"`
}

// IngestConfig contains the pull sources feeding the buffer
type IngestConfig struct {
	Kafka KafkaSourceConfig `mapstructure:"kafka"`
}

// KafkaSourceConfig contains Kafka consumer group settings
type KafkaSourceConfig struct {
	KafkaSecurityConfig `mapstructure:",squash"`
	Enabled             bool          `mapstructure:"enabled"`
	GroupID             string        `mapstructure:"group_id"`
	Topics              []string      `mapstructure:"topics"`
	AutoOffsetReset     string        `mapstructure:"auto_offset_reset"`
	MaxPollIntervalMS   int           `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMS    int           `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMS int           `mapstructure:"heartbeat_interval_ms"`
	AdmitMaxInterval    time.Duration `mapstructure:"admit_max_interval"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig contains API server settings. The ingest and stats
// endpoints share the health port.
type HealthConfig struct {
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if c.Store.Backend == "" {
		return fmt.Errorf("store backend is required")
	}
	if c.Bus.Enabled && c.Bus.Stream == "" {
		return fmt.Errorf("bus stream is required when the bus is enabled")
	}
	return nil
}

// Validate validates PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	return nil
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	return nil
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("file base path is required")
	}
	return nil
}

// Validate validates Kafka source configuration.
func (c *KafkaSourceConfig) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("kafka bootstrap servers are required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka consumer group ID is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("kafka topics are required")
	}
	return nil
}
