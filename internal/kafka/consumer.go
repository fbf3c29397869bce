// Package kafka implements the Kafka ingest source and the Kafka bus publisher.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/buffer"
	"github.com/jittakal/eventbuffer/pkg/consumer"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// Ensure implementation satisfies interfaces at compile time.
var _ consumer.Source = (*Source)(nil)

// ConsumerConfig contains Kafka ingest source configuration.
type ConsumerConfig struct {
	BootstrapServers    []string
	GroupID             string
	Topics              []string
	Security            SecurityConfig
	AutoOffsetReset     string
	SessionTimeoutMS    int
	HeartbeatIntervalMS int
	MaxPollIntervalMS   int
	// AdmitInitialInterval and AdmitMaxInterval bound the delay between
	// retries of an event the buffer rejected.
	AdmitInitialInterval time.Duration
	AdmitMaxInterval     time.Duration
}

// Validate checks the required consumer settings.
func (c ConsumerConfig) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("kafka bootstrap servers are required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka consumer group ID is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("at least one kafka topic is required")
	}
	return nil
}

// MetricsCollector defines metrics operations for the Kafka source.
type MetricsCollector interface {
	IncMessagesConsumed(topic string, partition int32)
	IncMessagesRejected(topic string, reason string)
	IncRebalances(groupID string)
	ObserveRebalanceDuration(groupID string, duration float64)
	SetPartitionsAssigned(topic string, count float64)
}

// Source consumes event envelopes from Kafka topics and admits them into
// an Ingestor. Offsets are marked only once the buffer accepted the event,
// or the message was found to be undecodable or invalid.
type Source struct {
	group     sarama.ConsumerGroup
	config    ConsumerConfig
	ingestor  buffer.Ingestor
	validator event.Validator
	logger    *slog.Logger
	metrics   MetricsCollector
	mu        sync.Mutex
	closed    bool
}

// NewSource creates a Kafka consumer group source.
func NewSource(
	config ConsumerConfig,
	ingestor buffer.Ingestor,
	validator event.Validator,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	saramaConfig, err := newSaramaConfig(config.Security)
	if err != nil {
		return nil, err
	}
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = offsetInitial(config.AutoOffsetReset)
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Return.Errors = true
	if config.SessionTimeoutMS > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMS) * time.Millisecond
	}
	if config.HeartbeatIntervalMS > 0 {
		saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatIntervalMS) * time.Millisecond
	}
	if config.MaxPollIntervalMS > 0 {
		saramaConfig.Consumer.MaxProcessingTime = time.Duration(config.MaxPollIntervalMS) * time.Millisecond
	}

	group, err := sarama.NewConsumerGroup(config.BootstrapServers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("kafka source created",
		"group_id", config.GroupID,
		"topics", config.Topics,
		"bootstrap_servers", config.BootstrapServers,
	)

	return newSource(group, config, ingestor, validator, logger, metrics), nil
}

func newSource(
	group sarama.ConsumerGroup,
	config ConsumerConfig,
	ingestor buffer.Ingestor,
	validator event.Validator,
	logger *slog.Logger,
	metrics MetricsCollector,
) *Source {
	if config.AdmitInitialInterval <= 0 {
		config.AdmitInitialInterval = 50 * time.Millisecond
	}
	if config.AdmitMaxInterval <= 0 {
		config.AdmitMaxInterval = 5 * time.Second
	}
	return &Source{
		group:     group,
		config:    config,
		ingestor:  ingestor,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run joins the consumer group and consumes until ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	handler := &groupHandler{source: s}

	go func() {
		for err := range s.group.Errors() {
			s.logger.Error("consumer group error", "error", err)
		}
	}()

	for {
		// Consume returns at the end of every session (rebalance).
		if err := s.group.Consume(ctx, s.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consumer group: %w", err)
		}
		if ctx.Err() != nil {
			s.logger.Info("kafka source stopped")
			return nil
		}
	}
}

// Close leaves the consumer group.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing kafka source")
	return s.group.Close()
}

// handle decodes, validates and admits one message. It returns false when
// the message must not be marked (session ended or the buffer is closed).
func (s *Source) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	e, err := event.Unmarshal(msg.Value)
	if err != nil {
		s.reject(msg, "decode", err)
		return true
	}
	if s.validator != nil {
		if err := s.validator.Validate(e); err != nil {
			s.reject(msg, "invalid", err)
			return true
		}
	}

	if err := s.admit(ctx, e); err != nil {
		if ctx.Err() != nil || errors.Is(err, apperrors.ErrChannelClosed) {
			return false
		}
		s.reject(msg, apperrors.Reason(err), err)
		return true
	}

	if s.metrics != nil {
		s.metrics.IncMessagesConsumed(msg.Topic, msg.Partition)
	}
	return true
}

// admit retries retryable rejections with exponential backoff until the
// event is accepted or ctx ends.
func (s *Source) admit(ctx context.Context, e *event.Event) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.AdmitInitialInterval
	policy.MaxInterval = s.config.AdmitMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.ingestor.AddEvent(ctx, e)
		if err != nil && !apperrors.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.logger.Debug("event rejected by buffer, retrying",
				"event_id", e.ID,
				"reason", apperrors.Reason(err),
				"retry_in", d,
			)
		}),
	)
	return err
}

func (s *Source) reject(msg *sarama.ConsumerMessage, reason string, err error) {
	s.logger.Warn("dropping kafka message",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"reason", reason,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.IncMessagesRejected(msg.Topic, reason)
	}
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	source         *Source
	rebalanceStart time.Time
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.rebalanceStart = time.Now()
	s := h.source

	s.logger.Info("consumer group session setup",
		"member_id", session.MemberID(),
		"generation_id", session.GenerationID(),
		"claims", session.Claims(),
	)

	if s.metrics != nil {
		s.metrics.IncRebalances(s.config.GroupID)
		for topic, partitions := range session.Claims() {
			s.metrics.SetPartitionsAssigned(topic, float64(len(partitions)))
		}
	}
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (h *groupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	s := h.source
	if s.metrics != nil && !h.rebalanceStart.IsZero() {
		s.metrics.ObserveRebalanceDuration(s.config.GroupID, time.Since(h.rebalanceStart).Seconds())
	}
	s.logger.Info("consumer group session cleanup", "member_id", session.MemberID())
	return nil
}

// ConsumeClaim admits messages from one partition in order.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	s := h.source
	s.logger.Info("started consuming partition",
		"topic", claim.Topic(),
		"partition", claim.Partition(),
		"initial_offset", claim.InitialOffset(),
	)

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !s.handle(session.Context(), msg) {
				return nil
			}
			session.MarkMessage(msg, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// offsetInitial converts the AutoOffsetReset config to Sarama's offset constant.
func offsetInitial(autoOffsetReset string) int64 {
	if autoOffsetReset == "earliest" {
		return sarama.OffsetOldest
	}
	return sarama.OffsetNewest
}
