// Package metrics provides Prometheus metrics for the footprint telemetry collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the footprint service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion Metrics - what the collector accepted
	pageViewsRecorded  prometheus.Counter
	pageViewsDuplicate prometheus.Counter
	eventsRecorded     *prometheus.CounterVec
	eventsRejected     prometheus.Counter
	heatmapSamples     *prometheus.CounterVec
	recordsEvicted     *prometheus.CounterVec
	beaconsIgnored     *prometheus.CounterVec

	// Collection Gauges - current store sizes
	storedPageViews prometheus.Gauge
	storedEvents    prometheus.Gauge
	storedSamples   prometheus.Gauge

	// Geolocation Metrics - best-effort external lookups
	geoLookups       *prometheus.CounterVec
	geoLookupLatency prometheus.Histogram

	// Persistence Metrics - key/value substrate health
	persistenceSaves        prometheus.Counter
	persistenceSaveFailures prometheus.Counter
	persistenceResets       prometheus.Counter
	persistenceSaveLatency  prometheus.Histogram
	persistenceBytes        *prometheus.GaugeVec

	// Snapshot Metrics
	snapshotLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - beacon queue performance
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - beacon processing performance
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "footprint",
		subsystem:        "collector",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels, Buckets: buckets,
		})
	}

	// Ingestion
	m.pageViewsRecorded = counter("page_views_recorded_total", "Total number of page views appended to the store")
	m.pageViewsDuplicate = counter("page_views_duplicate_total", "Total number of page views dropped by the ip+path dedup window")
	m.eventsRecorded = counterVec("events_recorded_total", "Total number of analytics events recorded by name", "name")
	m.eventsRejected = counter("events_rejected_total", "Total number of analytics events rejected by validation")
	m.heatmapSamples = counterVec("heatmap_samples_total", "Total number of heatmap samples recorded by type", "type")
	m.recordsEvicted = counterVec("records_evicted_total", "Total number of records evicted by collection caps", "collection")
	m.beaconsIgnored = counterVec("beacons_ignored_total", "Total number of beacons ignored before ingestion", "reason")

	m.storedPageViews = gauge("stored_page_views", "Current number of stored page views")
	m.storedEvents = gauge("stored_events", "Current number of stored analytics events")
	m.storedSamples = gauge("stored_heatmap_samples", "Current number of stored heatmap samples")

	// Geolocation
	m.geoLookups = counterVec("geo_lookups_total", "Total number of geolocation lookups by outcome", "outcome")
	m.geoLookupLatency = histogram("geo_lookup_latency_milliseconds", "Geolocation lookup latency in milliseconds", m.histogramBuckets)

	// Persistence
	m.persistenceSaves = counter("persistence_saves_total", "Total number of full collection saves")
	m.persistenceSaveFailures = counter("persistence_save_failures_total", "Total number of failed collection saves")
	m.persistenceResets = counter("persistence_resets_total", "Total number of resets after corrupt persisted data")
	m.persistenceSaveLatency = histogram("persistence_save_latency_milliseconds", "Latency of a full collection save in milliseconds", m.histogramBuckets)
	m.persistenceBytes = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("persistence_bytes"),
		Help: "Serialized size of each persisted collection in bytes", ConstLabels: constLabels,
	}, []string{"key"})

	m.snapshotLatency = histogram("snapshot_latency_milliseconds", "Dashboard snapshot computation latency in milliseconds", m.histogramBuckets)

	// HTTP
	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", ConstLabels: constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	// Queue
	m.queueSize = gauge("queue_size", "Current number of beacons waiting in the queue")
	m.queueCapacity = gauge("queue_capacity", "Maximum capacity of the beacon queue")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue utilization ratio (0.0 to 1.0)")
	m.queueEnqueueRate = counter("queue_enqueue_total", "Total number of beacons enqueued")
	m.queueDequeueRate = counter("queue_dequeue_total", "Total number of beacons dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = histogram("queue_processing_latency_milliseconds", "Queue enqueue latency in milliseconds", m.histogramBuckets)

	// Workers
	m.workerCount = gauge("worker_count", "Configured number of beacon workers")
	m.workerActiveCount = gauge("worker_active_count", "Number of running beacon workers")
	m.workerMessagesPerSecond = gauge("worker_messages_per_second", "Beacons processed per second")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Beacon processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = counter("worker_errors_total", "Total number of beacon processing errors")

	// Errors
	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")
	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("error_latency_milliseconds"),
		Help: "Latency of requests that ended in an error", ConstLabels: constLabels, Buckets: m.histogramBuckets,
	}, []string{"component", "error_type"})

	// System
	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordPageView increments the recorded page views counter.
func RecordPageView() {
	if !globalManager.enabled {
		return
	}
	globalManager.pageViewsRecorded.Inc()
}

// RecordPageViewDuplicate increments the dedup-dropped page views counter.
func RecordPageViewDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.pageViewsDuplicate.Inc()
}

// RecordEvent increments the recorded events counter for name.
func RecordEvent(name string) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsRecorded.WithLabelValues(name).Inc()
}

// RecordEventRejected increments the rejected events counter.
func RecordEventRejected() {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsRejected.Inc()
}

// RecordHeatmapSample increments the heatmap samples counter for sampleType.
func RecordHeatmapSample(sampleType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.heatmapSamples.WithLabelValues(sampleType).Inc()
}

// RecordEviction adds n evicted records for collection.
func RecordEviction(collection string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.recordsEvicted.WithLabelValues(collection).Add(float64(n))
}

// RecordBeaconIgnored counts a beacon dropped before ingestion (e.g. DNT).
func RecordBeaconIgnored(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.beaconsIgnored.WithLabelValues(reason).Inc()
}

// UpdateStoredCounts sets the collection size gauges.
func UpdateStoredCounts(pageViews, events, samples int) {
	if !globalManager.enabled {
		return
	}
	globalManager.storedPageViews.Set(float64(pageViews))
	globalManager.storedEvents.Set(float64(events))
	globalManager.storedSamples.Set(float64(samples))
}

// RecordGeoLookup records one geolocation lookup outcome ("ok", "error", "disabled").
func RecordGeoLookup(outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.geoLookups.WithLabelValues(outcome).Inc()
	globalManager.geoLookupLatency.Observe(latencyMs)
}

// RecordPersistenceSave records a successful full save.
func RecordPersistenceSave(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.persistenceSaves.Inc()
	globalManager.persistenceSaveLatency.Observe(latencyMs)
}

// RecordPersistenceSaveFailure increments the failed saves counter.
func RecordPersistenceSaveFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.persistenceSaveFailures.Inc()
}

// RecordPersistenceReset increments the corrupt-data reset counter.
func RecordPersistenceReset() {
	if !globalManager.enabled {
		return
	}
	globalManager.persistenceResets.Inc()
}

// UpdatePersistenceBytes sets the serialized size of key.
func UpdatePersistenceBytes(key string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.persistenceBytes.WithLabelValues(key).Set(float64(size))
}

// RecordSnapshotLatency records dashboard snapshot latency in milliseconds.
func RecordSnapshotLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the worker throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records beacon processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed request.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the process-wide manager backing the package-level helpers.
func Default() *Manager {
	return globalManager
}

// RefreshInterval reports how often background gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}
