// Package metrics provides Prometheus metrics for the standings service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded by RecordRefresh.
const (
	OutcomeSuccess    = "success"
	OutcomeTransport  = "transport"
	OutcomeExtraction = "extraction"
	OutcomeQuota      = "quota"
	OutcomeCredential = "credential"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Refresh pipeline
	refreshRuns       *prometheus.CounterVec
	refreshDuration   prometheus.Histogram
	fetchLatency      prometheus.Histogram
	extractLatency    prometheus.Histogram
	recordsExtracted  prometheus.Counter
	duplicatesDropped prometheus.Counter
	publishedEntries  prometheus.Gauge
	lastSuccessUnix   prometheus.Gauge
	fetchBytes        prometheus.Histogram

	// Scheduler
	schedulerState  prometheus.Gauge
	triggers        *prometheus.CounterVec
	triggersSkipped *prometheus.CounterVec

	// Trigger queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// History store
	historyAppends prometheus.Counter
	historyErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "standings",
		subsystem:        "board",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.refreshRuns = auto.NewCounterVec(m.counterOpts("refresh_runs_total", "Completed refresh runs by outcome"), []string{"outcome"})
	m.refreshDuration = auto.NewHistogram(m.histogramOpts("refresh_duration_milliseconds", "End-to-end refresh run duration in milliseconds", m.histogramBuckets))
	m.fetchLatency = auto.NewHistogram(m.histogramOpts("fetch_latency_milliseconds", "Leaderboard page fetch latency in milliseconds", m.histogramBuckets))
	m.extractLatency = auto.NewHistogram(m.histogramOpts("extract_latency_milliseconds", "Record extraction latency in milliseconds", m.histogramBuckets))
	m.recordsExtracted = auto.NewCounter(m.counterOpts("records_extracted_total", "Records returned by the extraction service"))
	m.duplicatesDropped = auto.NewCounter(m.counterOpts("duplicates_dropped_total", "Extracted records dropped because their name was already seen in the run"))
	m.publishedEntries = auto.NewGauge(m.gaugeOpts("published_entries", "Entries in the currently published snapshot"))
	m.lastSuccessUnix = auto.NewGauge(m.gaugeOpts("last_success_unix", "Unix timestamp of the last successful refresh"))
	m.fetchBytes = auto.NewHistogram(m.histogramOpts("fetch_bytes", "Size of fetched leaderboard pages in bytes",
		prometheus.ExponentialBuckets(1024, 4, 8)))

	m.schedulerState = auto.NewGauge(m.gaugeOpts("scheduler_state", "Scheduler state (0 idle, 1 fetching, 2 stopped)"))
	m.triggers = auto.NewCounterVec(m.counterOpts("triggers_total", "Refresh triggers by source"), []string{"source"})
	m.triggersSkipped = auto.NewCounterVec(m.counterOpts("triggers_skipped_total", "Refresh triggers dropped by reason"), []string{"reason"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending refresh triggers"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Trigger queue capacity"))
	m.queueEnqueueTotal = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Triggers enqueued"))
	m.queueDequeueTotal = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Triggers dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Triggers rejected by the queue"))

	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Worker time per trigger in milliseconds", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Triggers whose run returned an error"))

	m.historyAppends = auto.NewCounter(m.counterOpts("history_appends_total", "Snapshots written to the history store"))
	m.historyErrors = auto.NewCounter(m.counterOpts("history_errors_total", "History store failures"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordRefresh counts a finished refresh run and observes its duration.
func RecordRefresh(outcome string, durationMs float64) error {
	switch outcome {
	case OutcomeSuccess, OutcomeTransport, OutcomeExtraction, OutcomeQuota, OutcomeCredential:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	globalManager.refreshRuns.WithLabelValues(outcome).Inc()
	globalManager.refreshDuration.Observe(durationMs)
	return nil
}

// RecordFetch observes fetch latency and page size.
func RecordFetch(latency time.Duration, bytes int) {
	globalManager.fetchLatency.Observe(float64(latency.Milliseconds()))
	globalManager.fetchBytes.Observe(float64(bytes))
}

// RecordExtraction observes extraction latency and the number of records returned.
func RecordExtraction(latency time.Duration, records int) {
	globalManager.extractLatency.Observe(float64(latency.Milliseconds()))
	globalManager.recordsExtracted.Add(float64(records))
}

// RecordDuplicatesDropped adds n dropped duplicates.
func RecordDuplicatesDropped(n int) {
	if n > 0 {
		globalManager.duplicatesDropped.Add(float64(n))
	}
}

// RecordPublish updates the published snapshot gauges.
func RecordPublish(entries int, at time.Time) {
	globalManager.publishedEntries.Set(float64(entries))
	globalManager.lastSuccessUnix.Set(float64(at.Unix()))
}

// UpdateSchedulerState sets the scheduler state gauge.
func UpdateSchedulerState(state int) {
	globalManager.schedulerState.Set(float64(state))
}

// RecordTrigger counts a refresh trigger by source (tick, manual).
func RecordTrigger(source string) {
	globalManager.triggers.WithLabelValues(source).Inc()
}

// RecordTriggerSkipped counts a dropped trigger by reason.
func RecordTriggerSkipped(reason string) {
	globalManager.triggersSkipped.WithLabelValues(reason).Inc()
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
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHistoryAppend increments the history append counter.
func RecordHistoryAppend() {
	globalManager.historyAppends.Inc()
}

// RecordHistoryError increments the history error counter.
func RecordHistoryError() {
	globalManager.historyErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
