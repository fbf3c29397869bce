package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/eventbuffer/pkg/buffer"
)

// StatsSource provides buffer counters at scrape time.
type StatsSource interface {
	Stats() buffer.Stats
	HealthCheck() bool
}

// StatsCollector exports a buffer Stats snapshot on every scrape.
type StatsCollector struct {
	source StatsSource

	accepted        *prometheus.Desc
	processed       *prometheus.Desc
	errors          *prometheus.Desc
	dropped         *prometheus.Desc
	retries         *prometheus.Desc
	backpressure    *prometheus.Desc
	publishFailures *prometheus.Desc
	bufferSize      *prometheus.Desc
	memoryBytes     *prometheus.Desc
	lastFlush       *prometheus.Desc
	circuitOpen     *prometheus.Desc
	healthy         *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a collector over source. Register it with the
// same registry as Metrics.
func NewStatsCollector(source StatsSource) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("ingest_buffer_"+name, help, nil, nil)
	}

	return &StatsCollector{
		source:          source,
		accepted:        desc("accepted_total", "Total number of events admitted"),
		processed:       desc("processed_total", "Total number of events written to the store"),
		errors:          desc("errors_total", "Total number of events in batches that failed all store attempts"),
		dropped:         desc("dropped_total", "Total number of events dropped at admission or flush"),
		retries:         desc("retries_total", "Total number of store retries"),
		backpressure:    desc("backpressure_events_total", "Total number of capacity-related rejections"),
		publishFailures: desc("publish_failures_total", "Total number of failed bus publishes"),
		bufferSize:      desc("current_size", "Number of events resident in the buffer"),
		memoryBytes:     desc("memory_bytes", "Estimated bytes held by resident events"),
		lastFlush:       desc("last_flush_timestamp_seconds", "Unix time of the last successful flush"),
		circuitOpen:     desc("circuit_breaker_open", "Whether the admission circuit breaker is open"),
		healthy:         desc("healthy", "Whether the buffer reports healthy"),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accepted
	ch <- c.processed
	ch <- c.errors
	ch <- c.dropped
	ch <- c.retries
	ch <- c.backpressure
	ch <- c.publishFailures
	ch <- c.bufferSize
	ch <- c.memoryBytes
	ch <- c.lastFlush
	ch <- c.circuitOpen
	ch <- c.healthy
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.accepted, s.TotalAccepted)
	counter(c.processed, s.TotalProcessed)
	counter(c.errors, s.TotalErrors)
	counter(c.dropped, s.TotalDropped)
	counter(c.retries, s.TotalRetries)
	counter(c.backpressure, s.BackpressureEvents)
	counter(c.publishFailures, s.PublishFailures)
	gauge(c.bufferSize, float64(s.CurrentBufferSize))
	gauge(c.memoryBytes, float64(s.CurrentMemoryBytes))
	gauge(c.lastFlush, float64(s.LastFlushUnixMilli)/1000)
	gauge(c.circuitOpen, boolToFloat(s.CircuitBreakerOpen))
	gauge(c.healthy, boolToFloat(c.source.HealthCheck()))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
