// Package metrics provides Prometheus metrics for the performance evaluation service.
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

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics
	evaluations          *prometheus.CounterVec
	evaluationLatency    prometheus.Histogram
	overallScore         prometheus.Histogram
	dimensionScore       *prometheus.HistogramVec
	alignmentMatches     *prometheus.CounterVec
	recommendations      *prometheus.CounterVec
	recommendFallbacks   prometheus.Counter
	duplicateSubmissions prometheus.Counter

	// Store Metrics
	storeLatency *prometheus.HistogramVec
	totalPieces  prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueue     prometheus.Counter
	queueDequeue     prometheus.Counter
	queueRejections  prometheus.Counter
	queueUtilization prometheus.Gauge

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mugic",
		subsystem:        "feedback",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Enabled reports whether recording is turned on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.evaluations = auto.NewCounterVec(
		m.counterOpts("evaluations_total", "Total number of evaluations by outcome"),
		[]string{"outcome"},
	)
	m.evaluationLatency = auto.NewHistogram(
		m.histogramOpts("evaluation_latency_milliseconds", "Evaluation latency in milliseconds", m.histogramBuckets),
	)
	m.overallScore = auto.NewHistogram(
		m.histogramOpts("overall_score", "Distribution of overall scores", m.scoreBuckets),
	)
	m.dimensionScore = auto.NewHistogramVec(
		m.histogramOpts("dimension_score", "Distribution of per-dimension scores", m.scoreBuckets),
		[]string{"dimension"},
	)
	m.alignmentMatches = auto.NewCounterVec(
		m.counterOpts("alignment_matches_total", "Alignment results by kind"),
		[]string{"kind"},
	)
	m.recommendations = auto.NewCounterVec(
		m.counterOpts("recommendations_total", "Recommendation sets by source"),
		[]string{"source"},
	)
	m.recommendFallbacks = auto.NewCounter(
		m.counterOpts("recommendation_fallbacks_total", "Generative recommendation failures that fell back to templates"),
	)
	m.duplicateSubmissions = auto.NewCounter(
		m.counterOpts("duplicate_submissions_total", "Async submissions rejected by idempotency key"),
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250}),
		[]string{"operation"},
	)
	m.totalPieces = auto.NewGauge(m.gaugeOpts("pieces", "Number of stored pieces"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current number of queued jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Queue buffer capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueRejections = auto.NewCounter(m.counterOpts("queue_rejections_total", "Jobs rejected because the queue was full or closed"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue fill ratio 0..1"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently processing a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Job processing latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs that failed"))

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Evaluation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// RecordEvaluation counts one evaluation with the given outcome.
func RecordEvaluation(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluations.WithLabelValues(outcome).Inc()
}

// RecordEvaluationLatency records evaluation latency in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordOverallScore observes an overall score.
func RecordOverallScore(score int) {
	if !globalManager.enabled {
		return
	}
	globalManager.overallScore.Observe(float64(score))
}

// RecordDimensionScore observes a per-dimension score.
func RecordDimensionScore(dimension string, score int) {
	if !globalManager.enabled {
		return
	}
	globalManager.dimensionScore.WithLabelValues(dimension).Observe(float64(score))
}

// RecordAlignmentMatches adds n results of the given kind.
func RecordAlignmentMatches(kind string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.alignmentMatches.WithLabelValues(kind).Add(float64(n))
}

// RecordRecommendation counts a recommendation set by source.
func RecordRecommendation(source string) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendations.WithLabelValues(source).Inc()
}

// RecordRecommendationFallback counts a generative failure.
func RecordRecommendationFallback() {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendFallbacks.Inc()
}

// RecordDuplicateSubmission counts a submission dropped by its idempotency key.
func RecordDuplicateSubmission() {
	if !globalManager.enabled {
		return
	}
	globalManager.duplicateSubmissions.Inc()
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateTotalPieces sets the number of stored pieces.
func UpdateTotalPieces(count int) {
	globalManager.totalPieces.Set(float64(count))
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

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueRejection increments the rejection counter.
func RecordQueueRejection() {
	globalManager.queueRejections.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

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
