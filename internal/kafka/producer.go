package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/bus"
)

// Ensure implementation satisfies interface at compile time.
var _ bus.Publisher = (*Producer)(nil)

// subjectHeader carries the bus subject when events share one topic.
const subjectHeader = "subject"

// ProducerConfig contains Kafka bus publisher configuration.
type ProducerConfig struct {
	BootstrapServers []string
	Security         SecurityConfig
	// Topic, when set, receives every event; otherwise the subject is the topic.
	Topic       string
	Compression string
	MaxRetries  int
}

// ProducerMetrics defines metrics operations for the Kafka producer.
type ProducerMetrics interface {
	IncMessagesProduced(topic string, status string)
}

// Producer publishes flushed events to Kafka with a SyncProducer.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  ProducerMetrics
	inflight sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewProducer creates a Kafka publisher.
func NewProducer(cfg ProducerConfig, logger *slog.Logger, metrics ProducerMetrics) (*Producer, error) {
	if len(cfg.BootstrapServers) == 0 {
		return nil, fmt.Errorf("kafka bootstrap servers are required")
	}

	saramaConfig, err := newSaramaConfig(cfg.Security)
	if err != nil {
		return nil, err
	}
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	// The idempotent producer requires at least one retry.
	saramaConfig.Producer.Retry.Max = max(cfg.MaxRetries, 1)
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Compression = compressionCodec(cfg.Compression)
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}

	logger.Info("kafka producer created",
		"bootstrap_servers", cfg.BootstrapServers,
		"topic", cfg.Topic,
	)

	return newProducer(producer, cfg.Topic, logger, metrics), nil
}

func newProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger, metrics ProducerMetrics) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  metrics,
	}
}

func compressionCodec(name string) sarama.CompressionCodec {
	switch name {
	case "none":
		return sarama.CompressionNone
	case "gzip":
		return sarama.CompressionGZIP
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionSnappy
	}
}

// Publish sends payload to Kafka and waits for the broker ack or ctx.
// A publish abandoned by ctx may still be delivered.
func (p *Producer) Publish(ctx context.Context, subject string, payload []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return apperrors.ErrPublisherClose
	}

	topic := subject
	if p.topic != "" {
		topic = p.topic
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(subjectHeader), Value: []byte(subject)},
		},
		Timestamp: time.Now(),
	}

	result := make(chan error, 1)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		_, _, err := p.producer.SendMessage(msg)
		result <- err
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		p.observe(topic, "error")
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}
	p.observe(topic, "success")
	return nil
}

func (p *Producer) observe(topic, status string) {
	if p.metrics != nil {
		p.metrics.IncMessagesProduced(topic, status)
	}
}

// Close closes the producer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.logger.Info("closing kafka producer")

	// Sends abandoned by their context must finish before the producer closes.
	p.inflight.Wait()
	if err := p.producer.Close(); err != nil {
		p.logger.Error("error closing producer", "error", err)
		return err
	}
	return nil
}
