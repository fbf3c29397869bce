// Package bus implements message bus publishers for republishing flushed events.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/pkg/bus"
)

var _ bus.Publisher = (*NATSPublisher)(nil)

// NATSConfig contains NATS JetStream configuration.
type NATSConfig struct {
	URL           string
	Name          string
	StreamName    string
	CreateStream  bool
	MaxReconnects int
	ReconnectWait time.Duration
}

// streamName returns the JetStream stream for a subject prefix,
// defaulting to the upper-cased prefix.
func (c NATSConfig) streamName(prefix string) string {
	if c.StreamName != "" {
		return c.StreamName
	}
	return strings.ToUpper(prefix)
}

// jetStreamPublisher is the subset of jetstream.JetStream used for publishing.
type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to a JetStream stream and waits for the ack.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetStreamPublisher
	logger *slog.Logger
	closed atomic.Bool
}

// NewNATSPublisher connects to NATS. When CreateStream is set, a stream
// capturing "<prefix>.events.>" is created or updated.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	if cfg.CreateStream {
		streamCfg := jetstream.StreamConfig{
			Name:     cfg.streamName(prefix),
			Subjects: []string{prefix + ".events.>"},
		}
		if _, err := js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", streamCfg.Name, err)
		}
	}

	logger.Info("nats publisher created",
		"url", cfg.URL,
		"stream", cfg.streamName(prefix),
	)

	return &NATSPublisher{conn: conn, js: js, logger: logger}, nil
}

// Publish sends payload to subject and waits for the JetStream ack or ctx.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p.closed.Load() {
		return apperrors.ErrPublisherClose
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("jetstream publish: %w", err)
	}
	return nil
}

// Close drains the connection so buffered messages are flushed.
func (p *NATSPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.Info("closing nats publisher")
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
