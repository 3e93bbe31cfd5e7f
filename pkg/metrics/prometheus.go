// Package metrics provides Prometheus metrics for the hotboard ranking service.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingest
	eventsRecorded  *prometheus.CounterVec
	eventsIgnored   prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsRejected  prometheus.Counter

	// Recompute
	recomputeRuns       *prometheus.CounterVec
	recomputeDuration   *prometheus.HistogramVec
	recomputeCandidates *prometheus.GaugeVec
	recomputeScored     *prometheus.CounterVec
	recomputeSkipped    *prometheus.CounterVec
	recomputeFailed     *prometheus.CounterVec
	recomputeLastUnix   *prometheus.GaugeVec

	// Leaderboard
	leaderboardReads   *prometheus.CounterVec
	leaderboardDropped *prometheus.CounterVec
	leaderboardSize    *prometheus.GaugeVec
	tapRegistrySize    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
}

const defaultNamespace = "hotboard"

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	granularity := []string{"granularity"}

	m.eventsRecorded = auto.NewCounterVec(m.counterOpts("events_recorded_total",
		"Engagement events applied to buckets and the tap registry"), []string{"action"})
	m.eventsIgnored = auto.NewCounter(m.counterOpts("events_ignored_total",
		"Events with an action outside the weight table"))
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total",
		"Events dropped because their id was already seen"))
	m.eventsRejected = auto.NewCounter(m.counterOpts("events_rejected_total",
		"Events rejected because the queue was full"))

	m.recomputeRuns = auto.NewCounterVec(m.counterOpts("recompute_runs_total",
		"Rank recompute runs by outcome"), []string{"granularity", "outcome"})
	m.recomputeDuration = auto.NewHistogramVec(m.histogramOpts("recompute_duration_milliseconds",
		"Wall time of a rank recompute run"), granularity)
	m.recomputeCandidates = auto.NewGaugeVec(m.gaugeOpts("recompute_candidates",
		"Candidates found in the last recompute window"), granularity)
	m.recomputeScored = auto.NewCounterVec(m.counterOpts("recompute_scored_total",
		"Entities whose rank was rewritten"), granularity)
	m.recomputeSkipped = auto.NewCounterVec(m.counterOpts("recompute_skipped_total",
		"Candidates skipped because the entity no longer exists"), granularity)
	m.recomputeFailed = auto.NewCounterVec(m.counterOpts("recompute_failed_total",
		"Candidates whose score could not be computed or stored"), granularity)
	m.recomputeLastUnix = auto.NewGaugeVec(m.gaugeOpts("recompute_last_success_unix",
		"Unix time of the last successful recompute"), granularity)

	m.leaderboardReads = auto.NewCounterVec(m.counterOpts("leaderboard_reads_total",
		"Leaderboard pages served"), granularity)
	m.leaderboardDropped = auto.NewCounterVec(m.counterOpts("leaderboard_dropped_total",
		"Ranked ids dropped from a page because the entity is gone"), granularity)
	m.leaderboardSize = auto.NewGaugeVec(m.gaugeOpts("leaderboard_size",
		"Members in the rank structure"), granularity)
	m.tapRegistrySize = auto.NewGauge(m.gaugeOpts("tap_registry_size",
		"Entities tracked by the tap registry"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.repositoryUpdateLatency = auto.NewHistogram(m.histogramOpts("repository_update_latency_milliseconds",
		"Repository write latency in milliseconds"))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogramOpts("repository_query_latency_milliseconds",
		"Repository read latency in milliseconds"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the event queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Messages enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Messages dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Enqueue failures"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds",
		"Time from enqueue to dequeue in milliseconds"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running event workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds"))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker processing errors"))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component"), []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by endpoint"), []string{"endpoint", "method", "error_type"})
}

// RecordEventRecorded counts an applied event.
func RecordEventRecorded(action string) {
	globalManager.eventsRecorded.WithLabelValues(action).Inc()
}

// RecordEventIgnored counts an event whose action carries no weight.
func RecordEventIgnored() {
	globalManager.eventsIgnored.Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventRejected counts an event turned away by backpressure.
func RecordEventRejected() {
	globalManager.eventsRejected.Inc()
}

// RecordRecomputeRun records the outcome and wall time of one run.
func RecordRecomputeRun(granularity, outcome string, durationMs float64) {
	globalManager.recomputeRuns.WithLabelValues(granularity, outcome).Inc()
	globalManager.recomputeDuration.WithLabelValues(granularity).Observe(durationMs)
}

// RecordRecomputeResult records the per-run counters of a finished recompute.
func RecordRecomputeResult(granularity string, candidates, scored, skipped, failed int, finishedUnix int64) {
	globalManager.recomputeCandidates.WithLabelValues(granularity).Set(float64(candidates))
	globalManager.recomputeScored.WithLabelValues(granularity).Add(float64(scored))
	globalManager.recomputeSkipped.WithLabelValues(granularity).Add(float64(skipped))
	globalManager.recomputeFailed.WithLabelValues(granularity).Add(float64(failed))
	globalManager.recomputeLastUnix.WithLabelValues(granularity).Set(float64(finishedUnix))
}

// RecordLeaderboardRead counts a served page.
func RecordLeaderboardRead(granularity string) {
	globalManager.leaderboardReads.WithLabelValues(granularity).Inc()
}

// RecordLeaderboardDropped counts ranked ids that had no entity behind them.
func RecordLeaderboardDropped(granularity string, n int) {
	if n <= 0 {
		return
	}
	globalManager.leaderboardDropped.WithLabelValues(granularity).Add(float64(n))
}

// UpdateLeaderboardSize sets the member count of a rank structure.
func UpdateLeaderboardSize(granularity string, n int) {
	globalManager.leaderboardSize.WithLabelValues(granularity).Set(float64(n))
}

// UpdateTapRegistrySize sets the number of entities in the tap registry.
func UpdateTapRegistrySize(n int) {
	globalManager.tapRegistrySize.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
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

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RegisterRuntimeCollectors adds Go runtime and process metrics to the
// service registry. Calling it more than once is a no-op.
func RegisterRuntimeCollectors() error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: defaultNamespace}),
	} {
		if err := customRegistry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err //nolint:wrapcheck // registry errors are descriptive
		}
	}
	return nil
}
