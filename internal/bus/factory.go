package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jittakal/eventbuffer/internal/kafka"
	"github.com/jittakal/eventbuffer/pkg/bus"
)

// Supported bus backends.
const (
	BackendNATS  = "nats"
	BackendKafka = "kafka"
)

// Config selects and configures the bus publisher.
type Config struct {
	Backend string
	// Stream is the subject prefix, see event.Subject.
	Stream  string
	NATS    NATSConfig
	Kafka   kafka.ProducerConfig
	Breaker GuardConfig
}

// GuardConfig enables the publish circuit breaker.
type GuardConfig struct {
	Enabled bool
	BreakerConfig
}

// FactoryMetrics is the union of the metrics used by every publisher.
type FactoryMetrics interface {
	MetricsCollector
	kafka.ProducerMetrics
}

// NewPublisher builds the configured publisher, wrapped by the circuit
// breaker when it is enabled.
func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger, metrics FactoryMetrics) (bus.Publisher, error) {
	var (
		pub bus.Publisher
		err error
	)

	switch cfg.Backend {
	case BackendNATS, "":
		pub, err = NewNATSPublisher(ctx, cfg.NATS, cfg.Stream, logger)
	case BackendKafka:
		var producerMetrics kafka.ProducerMetrics
		if metrics != nil {
			producerMetrics = metrics
		}
		pub, err = kafka.NewProducer(cfg.Kafka, logger, producerMetrics)
	default:
		return nil, fmt.Errorf("unsupported bus backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return guard(pub, cfg.Breaker, logger, metrics), nil
}

func guard(pub bus.Publisher, cfg GuardConfig, logger *slog.Logger, metrics FactoryMetrics) bus.Publisher {
	if !cfg.Enabled {
		return pub
	}
	var collector MetricsCollector
	if metrics != nil {
		collector = metrics
	}
	return NewGuardedPublisher(pub, cfg.BreakerConfig, logger, collector)
}
