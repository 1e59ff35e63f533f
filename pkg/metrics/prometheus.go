// Package metrics provides Prometheus metrics for the focus engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the focus engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	ingestRuns         *prometheus.CounterVec
	ingestFiles        *prometheus.CounterVec
	ingestRowsUpserted *prometheus.CounterVec
	ingestRowsSkipped  prometheus.Counter
	ingestDuration     prometheus.Histogram

	// Calibration
	calibrationRuns       *prometheus.CounterVec
	calibrationPopulation prometheus.Gauge
	activeWeight          *prometheus.GaugeVec

	// Focus read path
	focusRequests    *prometheus.CounterVec
	focusLatency     prometheus.Histogram
	focusComponent   *prometheus.CounterVec
	cacheOperations  *prometheus.CounterVec
	teamFocusLatency prometheus.Histogram
	atRiskPlayers    prometheus.Gauge

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryRows         *prometheus.GaugeVec

	// Recalibration worker
	workerRuns   prometheus.Counter
	workerErrors prometheus.Counter

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

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "focus",
		subsystem:        "engine",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		customLabels:     prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.ingestRuns = m.counterVec("ingest_runs_total", "Ingestion runs by outcome (success, partial, skipped)", "outcome")
	m.ingestFiles = m.counterVec("ingest_files_total", "Ingested files by kind and outcome", "kind", "outcome")
	m.ingestRowsUpserted = m.counterVec("ingest_rows_upserted_total", "Rows upserted into the fact store by table", "table")
	m.ingestRowsSkipped = m.counter("ingest_rows_skipped_total", "Decoded rows skipped because they failed validation")
	m.ingestDuration = m.histogram("ingest_duration_milliseconds", "Duration of a whole ingestion run in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})

	m.calibrationRuns = m.counterVec("calibration_runs_total", "Weight calibration runs by outcome", "outcome")
	m.calibrationPopulation = m.gauge("calibration_population_size", "Qualifying player-seasons in the last successful calibration")
	m.activeWeight = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("active_weight"),
		Help: "Active component weight", ConstLabels: m.customLabels,
	}, []string{"component"})

	m.focusRequests = m.counterVec("focus_requests_total", "Player focus requests by source (cache, computed)", "source")
	m.focusLatency = m.histogram("focus_latency_milliseconds", "Player focus computation latency in milliseconds", m.histogramBuckets)
	m.focusComponent = m.counterVec("focus_component_total", "Computed focus components", "component")
	m.cacheOperations = m.counterVec("cache_operations_total", "Focus cache operations by backend and result", "backend", "result")
	m.teamFocusLatency = m.histogram("team_focus_latency_milliseconds", "Roster aggregation latency in milliseconds", m.histogramBuckets)
	m.atRiskPlayers = m.gauge("at_risk_players", "At-risk players in the last roster aggregation")

	m.repositoryQueryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("repository_query_latency_milliseconds"),
			Help: "Row store operation latency in milliseconds", ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
		},
		[]string{"operation"},
	)
	m.repositoryRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("repository_rows"),
		Help: "Rows held per table", ConstLabels: m.customLabels,
	}, []string{"table"})

	m.workerRuns = m.counter("recalibration_worker_runs_total", "Scheduled recalibration runs")
	m.workerErrors = m.counter("recalibration_worker_errors_total", "Scheduled recalibration runs that failed")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_requests_total"),
			Help: "Total number of HTTP requests by endpoint and method", ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
			Help: "HTTP request duration in milliseconds", ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("error_latency_milliseconds"),
			Help: "Latency of operations that ended in an error", ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingestion.

// RecordIngestRun counts an ingestion run by outcome and records its duration.
func RecordIngestRun(outcome string, duration time.Duration) {
	globalManager.ingestRuns.WithLabelValues(outcome).Inc()
	globalManager.ingestDuration.Observe(float64(duration.Milliseconds()))
}

// RecordIngestFile counts one processed or failed file.
func RecordIngestFile(kind, outcome string) {
	globalManager.ingestFiles.WithLabelValues(kind, outcome).Inc()
}

// RecordRowsUpserted adds n upserted rows for a table.
func RecordRowsUpserted(table string, n int) {
	globalManager.ingestRowsUpserted.WithLabelValues(table).Add(float64(n))
}

// RecordRowsSkipped adds n skipped rows.
func RecordRowsSkipped(n int) {
	globalManager.ingestRowsSkipped.Add(float64(n))
}

// Calibration.

// RecordCalibration counts a calibration run by outcome.
func RecordCalibration(outcome string) {
	globalManager.calibrationRuns.WithLabelValues(outcome).Inc()
}

// UpdateActiveWeights publishes the active weight set.
func UpdateActiveWeights(population int, ott, app, arg, putt float64) {
	globalManager.calibrationPopulation.Set(float64(population))
	globalManager.activeWeight.WithLabelValues("OTT").Set(ott)
	globalManager.activeWeight.WithLabelValues("APP").Set(app)
	globalManager.activeWeight.WithLabelValues("ARG").Set(arg)
	globalManager.activeWeight.WithLabelValues("PUTT").Set(putt)
}

// Focus.

// RecordFocusRequest counts a focus request served from "cache" or "computed".
func RecordFocusRequest(source string) {
	globalManager.focusRequests.WithLabelValues(source).Inc()
}

// RecordFocusLatency records focus computation latency in milliseconds.
func RecordFocusLatency(latencyMs float64) {
	globalManager.focusLatency.Observe(latencyMs)
}

// RecordFocusComponent counts a computed focus component.
func RecordFocusComponent(component string) {
	globalManager.focusComponent.WithLabelValues(component).Inc()
}

// RecordCacheOperation counts a cache hit, miss, put or error for a backend.
func RecordCacheOperation(backend, result string) {
	globalManager.cacheOperations.WithLabelValues(backend, result).Inc()
}

// RecordTeamFocus records roster aggregation latency and the at-risk count.
func RecordTeamFocus(latencyMs float64, atRisk int) {
	globalManager.teamFocusLatency.Observe(latencyMs)
	globalManager.atRiskPlayers.Set(float64(atRisk))
}

// Worker.

// RecordWorkerRun counts a scheduled recalibration run.
func RecordWorkerRun() {
	globalManager.workerRuns.Inc()
}

// RecordWorkerError counts a failed scheduled recalibration run.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository.

// RecordRepositoryQueryLatency records the latency of a row store operation.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateRepositoryRows sets the row count for a table.
func UpdateRepositoryRows(table string, n int64) {
	globalManager.repositoryRows.WithLabelValues(table).Set(float64(n))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

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

// System.

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
