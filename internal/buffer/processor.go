package buffer

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/jittakal/eventbuffer/internal/circuitbreaker"
	apperrors "github.com/jittakal/eventbuffer/internal/errors"
	"github.com/jittakal/eventbuffer/internal/stats"
	"github.com/jittakal/eventbuffer/pkg/bus"
	"github.com/jittakal/eventbuffer/pkg/event"
	"github.com/jittakal/eventbuffer/pkg/storage"
)

// item is one admitted event travelling through the channel with its token.
type item struct {
	event *event.Event
	size  int64
	token *token
}

// batchProcessor is the single consumer of the event channel. It owns the
// batch and performs all store and bus I/O.
type batchProcessor struct {
	cfg       Config
	events    <-chan item
	store     storage.Store
	publisher bus.Publisher
	breaker   *circuitbreaker.CircuitBreaker
	stats     *stats.Stats
	logger    *slog.Logger
	metrics   MetricsCollector

	// publishQueue feeds a fixed set of publish workers. Events that do not
	// fit are dropped, so a slow bus cannot hold more than the queue plus one
	// event per worker.
	publishQueue chan *event.Event
	publishers   conc.WaitGroup
	done         chan struct{}
	now          func() time.Time
}

// run loops until the channel is closed and drained.
func (p *batchProcessor) run() {
	defer close(p.done)
	p.startPublishers()
	defer p.stopPublishers()

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]item, 0, p.cfg.BatchSize)
	for {
		select {
		case it, ok := <-p.events:
			if !ok {
				if len(batch) > 0 {
					p.flush(batch)
				}
				p.logger.Info("batch processor stopped")
				return
			}
			batch = append(batch, it)
			if len(batch) >= p.cfg.BatchSize {
				batch = p.flush(p.drain(batch))
			}

		case <-ticker.C:
			if len(batch) > 0 {
				batch = p.flush(p.drain(batch))
			}
		}
	}
}

// drain appends every event that is already queued without blocking.
func (p *batchProcessor) drain(batch []item) []item {
	for {
		select {
		case it, ok := <-p.events:
			if !ok {
				return batch
			}
			batch = append(batch, it)
		default:
			return batch
		}
	}
}

// flush stores the batch, updates stats and the breaker, releases tokens,
// then hands the events to the bus. It returns the emptied batch for reuse.
func (p *batchProcessor) flush(batch []item) []item {
	start := p.now()
	submitted := len(batch)

	events := make([]*event.Event, submitted)
	var memory int64
	for i, it := range batch {
		events[i] = it.event
		memory += it.size
	}

	// Flushes always run to completion; producer cancellation never reaches the store.
	inserted, err := p.insertWithRetry(context.Background(), events)

	status := "success"
	if err != nil {
		status = "failure"
		p.stats.RecordFlushFailure(submitted)
		tripped := p.breaker.RecordFailure()
		p.logger.Error("batch flush failed",
			"batch_size", submitted,
			"attempts", p.cfg.MaxRetries,
			"error", err,
		)
		if tripped {
			p.logger.Warn("circuit breaker opened",
				"consecutive_errors", p.breaker.ConsecutiveErrors(),
				"cooldown", p.cfg.Cooldown,
			)
		}
	} else {
		p.stats.RecordFlushSuccess(submitted, inserted, p.now())
		if inserted < submitted {
			status = "partial"
			p.logger.Warn("batch partially stored",
				"submitted", submitted,
				"inserted", inserted,
			)
		}
		if p.breaker.RecordStoreSuccess() {
			p.logger.Info("circuit breaker closed after successful store write")
		}
	}

	p.stats.Release(submitted, memory)
	for _, it := range batch {
		it.token.release()
	}

	duration := p.now().Sub(start)
	if p.metrics != nil {
		p.metrics.IncFlush(status)
		p.metrics.ObserveFlushBatchSize(float64(submitted))
		p.metrics.ObserveFlushDuration(duration.Seconds())
	}
	p.logger.Debug("batch flushed",
		"status", status,
		"batch_size", submitted,
		"inserted", inserted,
		"duration", duration,
	)

	p.publish(events)

	clear(batch)
	return batch[:0]
}

// startPublishers launches PublishConcurrency workers draining the publish queue.
func (p *batchProcessor) startPublishers() {
	if p.publisher == nil {
		return
	}
	p.publishQueue = make(chan *event.Event, p.cfg.ChannelCapacity)
	for range p.cfg.PublishConcurrency {
		p.publishers.Go(func() {
			for e := range p.publishQueue {
				p.publishOne(e)
			}
		})
	}
}

// stopPublishers lets the workers finish the queued events and waits for them.
func (p *batchProcessor) stopPublishers() {
	if p.publishQueue == nil {
		return
	}
	close(p.publishQueue)
	p.publishers.Wait()
}

// publish queues the events for the bus without blocking. Events that find
// the queue full are counted as publish failures and dropped.
func (p *batchProcessor) publish(events []*event.Event) {
	if p.publishQueue == nil {
		return
	}

	dropped := 0
	for _, e := range events {
		select {
		case p.publishQueue <- e:
		default:
			dropped++
		}
	}
	if dropped == 0 {
		return
	}

	for range dropped {
		p.stats.RecordPublishFailure()
		if p.metrics != nil {
			p.metrics.IncBusPublish("dropped")
		}
	}
	p.logger.Warn("bus publish queue full, events not published",
		"dropped", dropped,
		"queue_capacity", cap(p.publishQueue),
	)
}

func (p *batchProcessor) publishOne(e *event.Event) {
	subject := e.Subject(p.cfg.Stream)

	payload, err := event.Marshal(e)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PublishTimeout)
		err = p.publisher.Publish(ctx, subject, payload)
		cancel()
	}

	if err != nil {
		p.stats.RecordPublishFailure()
		if p.metrics != nil {
			p.metrics.IncBusPublish("failure")
		}
		p.logger.Warn("bus publish failed",
			"event_id", e.ID,
			"error", &apperrors.PublishError{Subject: subject, Err: err},
		)
		return
	}

	if p.metrics != nil {
		p.metrics.IncBusPublish("success")
	}
}
