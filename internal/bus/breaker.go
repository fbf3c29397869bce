package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jittakal/eventbuffer/pkg/bus"
)

var _ bus.Publisher = (*GuardedPublisher)(nil)

// MetricsCollector defines metrics operations for the bus guard.
type MetricsCollector interface {
	SetBusBreakerState(name string, state float64)
}

// BreakerConfig configures the publish circuit breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// GuardedPublisher fails publishes fast while the bus is unhealthy.
// It is unrelated to the admission breaker of the buffer.
type GuardedPublisher struct {
	next bus.Publisher
	cb   *gobreaker.CircuitBreaker
}

// NewGuardedPublisher wraps next with a gobreaker circuit breaker.
func NewGuardedPublisher(next bus.Publisher, cfg BreakerConfig, logger *slog.Logger, metrics MetricsCollector) *GuardedPublisher {
	if cfg.Name == "" {
		cfg.Name = "bus"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("bus breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if metrics != nil {
				metrics.SetBusBreakerState(name, stateValue(to))
			}
		},
	}
	if metrics != nil {
		metrics.SetBusBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))
	}

	return &GuardedPublisher{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// stateValue maps breaker states to gauge values: closed 0, half-open 1, open 2.
func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Publish forwards to the wrapped publisher unless the breaker is open,
// in which case it returns gobreaker.ErrOpenState immediately.
func (g *GuardedPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.Publish(ctx, subject, payload)
	})
	return err
}

// State returns the breaker state.
func (g *GuardedPublisher) State() gobreaker.State {
	return g.cb.State()
}

// Close closes the wrapped publisher.
func (g *GuardedPublisher) Close() error {
	return g.next.Close()
}
