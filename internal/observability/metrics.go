package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Ingest metrics
	AdmissionRejected *prometheus.CounterVec
	Flushes           *prometheus.CounterVec
	FlushBatchSize    prometheus.Histogram
	FlushDuration     prometheus.Histogram
	StoreRetries      prometheus.Counter
	BusPublishes      *prometheus.CounterVec
	BusBreakerState   *prometheus.GaugeVec

	// Kafka source metrics
	MessagesConsumed   *prometheus.CounterVec
	MessagesRejected   *prometheus.CounterVec
	Rebalances         *prometheus.CounterVec
	RebalanceDuration  *prometheus.HistogramVec
	PartitionsAssigned *prometheus.GaugeVec

	// Kafka producer metrics
	MessagesProduced *prometheus.CounterVec

	// Storage metrics
	FilesWritten         *prometheus.CounterVec
	FileSize             *prometheus.HistogramVec
	StorageWriteDuration *prometheus.HistogramVec
	StorageErrors        *prometheus.CounterVec
	RowsInserted         *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Ingest metrics
		AdmissionRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_admission_rejected_total",
				Help: "Total number of events rejected at admission",
			},
			[]string{"reason"},
		),
		Flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_flush_total",
				Help: "Total number of batch flushes by outcome",
			},
			[]string{"status"},
		),
		FlushBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_flush_batch_size",
				Help:    "Number of events per flushed batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1 to 16384
			},
		),
		FlushDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_flush_duration_seconds",
				Help:    "Duration of batch flushes including store retries",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		StoreRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_store_retries_total",
				Help: "Total number of store insert retries",
			},
		),
		BusPublishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_bus_publish_total",
				Help: "Total number of bus publishes by outcome",
			},
			[]string{"status"},
		),
		BusBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingest_bus_breaker_state",
				Help: "State of the bus publisher breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		// Kafka source metrics
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_consumed_total",
				Help: "Total number of messages consumed from Kafka",
			},
			[]string{"topic", "partition"},
		),
		MessagesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_rejected_total",
				Help: "Total number of Kafka messages that were not admitted",
			},
			[]string{"topic", "reason"},
		),
		Rebalances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_rebalance_total",
				Help: "Total number of consumer group rebalances",
			},
			[]string{"group"},
		),
		RebalanceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kafka_rebalance_duration_seconds",
				Help:    "Duration of consumer group rebalances",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"group"},
		),
		PartitionsAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kafka_partitions_assigned",
				Help: "Number of partitions currently assigned to this consumer",
			},
			[]string{"topic"},
		),

		// Kafka producer metrics
		MessagesProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_produced_total",
				Help: "Total number of messages produced to Kafka",
			},
			[]string{"topic", "status"},
		),

		// Storage metrics
		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "files_written_total",
				Help: "Total number of files written to storage",
			},
			[]string{"category", "format", "status"},
		),
		FileSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "file_size_bytes",
				Help:    "Size of files written to storage",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256MB
			},
			[]string{"category", "format"},
		),
		StorageWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_write_duration_seconds",
				Help:    "Duration of complete storage write operations including encoding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "error_type"},
		),
		RowsInserted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_rows_inserted_total",
				Help: "Total number of rows inserted into the database",
			},
			[]string{"table"},
		),
	}
}

// IncAdmissionRejected increments the admission rejection counter.
func (m *Metrics) IncAdmissionRejected(reason string) {
	m.AdmissionRejected.WithLabelValues(reason).Inc()
}

// IncFlush increments the flush counter.
func (m *Metrics) IncFlush(status string) {
	m.Flushes.WithLabelValues(status).Inc()
}

// ObserveFlushBatchSize observes the size of a flushed batch.
func (m *Metrics) ObserveFlushBatchSize(size float64) {
	m.FlushBatchSize.Observe(size)
}

// ObserveFlushDuration observes flush duration.
func (m *Metrics) ObserveFlushDuration(duration float64) {
	m.FlushDuration.Observe(duration)
}

// IncStoreRetries increments the store retry counter.
func (m *Metrics) IncStoreRetries() {
	m.StoreRetries.Inc()
}

// IncBusPublish increments the bus publish counter.
func (m *Metrics) IncBusPublish(status string) {
	m.BusPublishes.WithLabelValues(status).Inc()
}

// SetBusBreakerState sets the bus breaker state gauge.
func (m *Metrics) SetBusBreakerState(name string, state float64) {
	m.BusBreakerState.WithLabelValues(name).Set(state)
}

// IncMessagesConsumed increments messages consumed counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, fmt.Sprintf("%d", partition)).Inc()
}

// IncMessagesRejected increments the rejected message counter.
func (m *Metrics) IncMessagesRejected(topic string, reason string) {
	m.MessagesRejected.WithLabelValues(topic, reason).Inc()
}

// IncRebalances increments rebalances counter.
func (m *Metrics) IncRebalances(groupID string) {
	m.Rebalances.WithLabelValues(groupID).Inc()
}

// ObserveRebalanceDuration observes rebalance duration.
func (m *Metrics) ObserveRebalanceDuration(groupID string, duration float64) {
	m.RebalanceDuration.WithLabelValues(groupID).Observe(duration)
}

// SetPartitionsAssigned sets partitions assigned gauge.
func (m *Metrics) SetPartitionsAssigned(topic string, count float64) {
	m.PartitionsAssigned.WithLabelValues(topic).Set(count)
}

// IncMessagesProduced increments the produced message counter.
func (m *Metrics) IncMessagesProduced(topic string, status string) {
	m.MessagesProduced.WithLabelValues(topic, status).Inc()
}

// IncFilesWritten increments files written counter.
func (m *Metrics) IncFilesWritten(category string, format string, status string) {
	m.FilesWritten.WithLabelValues(category, format, status).Inc()
}

// ObserveFileSize observes file size.
func (m *Metrics) ObserveFileSize(category string, format string, size float64) {
	m.FileSize.WithLabelValues(category, format).Observe(size)
}

// ObserveStorageWriteDuration observes storage write duration.
func (m *Metrics) ObserveStorageWriteDuration(backend string, duration float64) {
	m.StorageWriteDuration.WithLabelValues(backend).Observe(duration)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

// AddRowsInserted adds to the inserted row counter.
func (m *Metrics) AddRowsInserted(table string, count float64) {
	m.RowsInserted.WithLabelValues(table).Add(count)
}
