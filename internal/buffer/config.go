package buffer

import (
	"fmt"
	"time"
)

// Minimum time a producer may be blocked waiting for a token or a channel slot.
const minAdmissionTimeout = 100 * time.Millisecond

// Config holds the tunables of an EventBuffer.
type Config struct {
	// BatchSize is the flush trigger, not a cap. A batch may grow past it
	// when more events are already queued at flush time.
	BatchSize     int
	FlushInterval time.Duration

	// ChannelCapacity bounds both the channel and the admission token pool.
	ChannelCapacity  int
	MemoryLimitBytes int64

	ErrorThreshold uint32
	Cooldown       time.Duration

	MaxRetries        uint
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	Stream         string
	PublishTimeout time.Duration
	// PublishConcurrency is the number of publish workers shared by every
	// flush. Up to ChannelCapacity further events may wait for a worker.
	PublishConcurrency int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:          500,
		FlushInterval:      time.Second,
		ChannelCapacity:    10000,
		MemoryLimitBytes:   256 * 1024 * 1024,
		ErrorThreshold:     5,
		Cooldown:           30 * time.Second,
		MaxRetries:         10,
		InitialRetryDelay:  100 * time.Millisecond,
		MaxRetryDelay:      30 * time.Second,
		Stream:             "ingest",
		PublishTimeout:     5 * time.Second,
		PublishConcurrency: 16,
	}
}

// Validate checks the configuration for values the buffer cannot run with.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %s", c.FlushInterval)
	}
	if c.ChannelCapacity <= 0 {
		return fmt.Errorf("channel capacity must be positive, got %d", c.ChannelCapacity)
	}
	if c.MemoryLimitBytes <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d", c.MemoryLimitBytes)
	}
	if c.ErrorThreshold == 0 {
		return fmt.Errorf("circuit breaker error threshold must be positive")
	}
	if c.MaxRetries == 0 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.InitialRetryDelay <= 0 {
		return fmt.Errorf("initial retry delay must be positive, got %s", c.InitialRetryDelay)
	}
	if c.MaxRetryDelay < c.InitialRetryDelay {
		return fmt.Errorf("max retry delay (%s) must not be less than initial retry delay (%s)",
			c.MaxRetryDelay, c.InitialRetryDelay)
	}
	if c.Stream == "" {
		return fmt.Errorf("bus stream must not be empty")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive, got %s", c.PublishTimeout)
	}
	if c.PublishConcurrency <= 0 {
		return fmt.Errorf("publish concurrency must be positive, got %d", c.PublishConcurrency)
	}
	return nil
}

// admissionTimeout bounds token waits and channel sends: max(100ms, FlushInterval/10).
func (c Config) admissionTimeout() time.Duration {
	return max(minAdmissionTimeout, c.FlushInterval/10)
}
