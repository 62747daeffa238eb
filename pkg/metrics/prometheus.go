// Package metrics provides Prometheus metrics for the trackrank service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolve outcomes.
const (
	ResolveHit       = "hit"
	ResolveRebuild   = "rebuild"
	ResolveInvariant = "invariant"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Rank cache
	rankResolves    *prometheus.CounterVec
	rebuilds        prometheus.Counter
	rebuildDuration prometheus.Histogram
	rebuildEntries  prometheus.Gauge

	// Finishes
	finishes *prometheus.CounterVec

	// Mappacks
	mappackUpdates        *prometheus.CounterVec
	mappackUpdateDuration prometheus.Histogram
	mappackPlayers        prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	jobsCoalesced      prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trackrank",
		subsystem:        "ranking",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rankResolves = m.counterVec("rank_resolves_total",
		"Rank resolutions by outcome (hit, rebuild, invariant)", "outcome")
	m.rebuilds = m.counter("rebuilds_total", "Full rank cache rebuilds of one scope")
	m.rebuildDuration = m.histogram("rebuild_duration_milliseconds", "Duration of one scope rebuild")
	m.rebuildEntries = m.gauge("rebuild_last_entries", "Entries written by the last rebuild")

	m.finishes = m.counterVec("finishes_total", "Finishes by result (improved, kept, invalid)", "result")

	m.mappackUpdates = m.counterVec("mappack_updates_total",
		"Mappack recomputes by result (scored, expired, failed)", "result")
	m.mappackUpdateDuration = m.histogram("mappack_update_duration_milliseconds", "Duration of one mappack recompute")
	m.mappackPlayers = m.gauge("mappack_last_players", "Players scored by the last mappack recompute")

	m.queueSize = m.gauge("queue_size", "Pending mappack jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the mappack job queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Mappack jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Mappack jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Mappack jobs rejected by the queue")
	m.jobsCoalesced = m.counter("jobs_coalesced_total", "Mappack jobs dropped because the same id was pending")

	m.workerCount = m.gauge("worker_count", "Configured mappack workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Mappack workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent on one job")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordRankResolve counts one rank resolution with the given outcome.
func RecordRankResolve(outcome string) {
	if globalManager.enabled {
		globalManager.rankResolves.WithLabelValues(outcome).Inc()
	}
}

// RecordRebuild records one scope rebuild.
func RecordRebuild(d time.Duration, entries int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rebuilds.Inc()
	globalManager.rebuildDuration.Observe(ms(d))
	globalManager.rebuildEntries.Set(float64(entries))
}

// RecordFinish counts one finish by result.
func RecordFinish(result string) {
	if globalManager.enabled {
		globalManager.finishes.WithLabelValues(result).Inc()
	}
}

// RecordMappackUpdate records one mappack recompute.
func RecordMappackUpdate(result string, d time.Duration, players int) {
	if !globalManager.enabled {
		return
	}
	globalManager.mappackUpdates.WithLabelValues(result).Inc()
	globalManager.mappackUpdateDuration.Observe(ms(d))
	if players >= 0 {
		globalManager.mappackPlayers.Set(float64(players))
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordJobCoalesced counts a job dropped as a duplicate of a pending one.
func RecordJobCoalesced() {
	globalManager.jobsCoalesced.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(d))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
