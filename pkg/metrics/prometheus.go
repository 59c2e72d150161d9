// Package metrics provides Prometheus metrics for the Stuff Score service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// DefaultLatencyBuckets are histogram bounds in milliseconds, the unit
// every latency here is recorded in.
var DefaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the Stuff Score service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics
	leaderboardComputations *prometheus.CounterVec
	computeLatency          *prometheus.HistogramVec
	populationSize          *prometheus.GaugeVec
	missingMetrics          *prometheus.CounterVec
	zeroVariance            *prometheus.CounterVec
	scoringErrors           prometheus.Counter

	// Snapshot Cache Metrics
	cacheHits              *prometheus.CounterVec
	cacheMisses            *prometheus.CounterVec
	snapshotLastUnix       *prometheus.GaugeVec
	snapshotLastDurationMs *prometheus.GaugeVec

	// Data Source Metrics
	sourceQueryLatency *prometheus.HistogramVec
	sourceQueryErrors  *prometheus.CounterVec

	// Refresh Queue Metrics
	refreshQueueSize     prometheus.Gauge
	refreshEnqueued      *prometheus.CounterVec
	refreshRejected      *prometheus.CounterVec
	refreshProcessed     *prometheus.CounterVec
	refreshLatency       *prometheus.HistogramVec
	refreshWorkersActive prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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

// Init rebuilds the global manager with opts on a fresh registry, which
// GetRegistry then returns. Call it before anything records or serves
// metrics.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stuffscore",
		subsystem:        "leaderboard",
		histogramBuckets: DefaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.leaderboardComputations = auto.NewCounterVec(
		m.counterOpts("computations_total", "Total number of leaderboard computations by population"),
		[]string{"population"},
	)
	m.computeLatency = auto.NewHistogramVec(
		m.histogramOpts("compute_latency_milliseconds", "Leaderboard computation latency in milliseconds"),
		[]string{"population"},
	)
	m.populationSize = auto.NewGaugeVec(
		m.gaugeOpts("population_size", "Number of pitchers in the last computed population"),
		[]string{"population"},
	)
	m.missingMetrics = auto.NewCounterVec(
		m.counterOpts("missing_metric_total", "Pitchers scored with a missing metric, by metric"),
		[]string{"metric"},
	)
	m.zeroVariance = auto.NewCounterVec(
		m.counterOpts("zero_variance_total", "Computations where a metric had zero spread, by metric"),
		[]string{"metric"},
	)
	m.scoringErrors = auto.NewCounter(
		m.counterOpts("scoring_errors_total", "Total number of failed leaderboard computations"),
	)

	// Snapshot Cache Metrics
	m.cacheHits = auto.NewCounterVec(
		m.counterOpts("snapshot_cache_hits_total", "Snapshot lookups served from the store"),
		[]string{"store"},
	)
	m.cacheMisses = auto.NewCounterVec(
		m.counterOpts("snapshot_cache_misses_total", "Snapshot lookups that required a recompute"),
		[]string{"store"},
	)
	m.snapshotLastUnix = auto.NewGaugeVec(
		m.gaugeOpts("snapshot_last_unix", "Unix time of the last published snapshot"),
		[]string{"population"},
	)
	m.snapshotLastDurationMs = auto.NewGaugeVec(
		m.gaugeOpts("snapshot_last_duration_milliseconds", "Duration of the last snapshot computation in milliseconds"),
		[]string{"population"},
	)

	// Data Source Metrics
	m.sourceQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("source_query_latency_milliseconds", "Data source query latency in milliseconds"),
		[]string{"query"},
	)
	m.sourceQueryErrors = auto.NewCounterVec(
		m.counterOpts("source_query_errors_total", "Failed data source queries"),
		[]string{"query"},
	)

	// Refresh Queue Metrics
	m.refreshQueueSize = auto.NewGauge(
		m.gaugeOpts("refresh_queue_size", "Refresh jobs waiting in the queue"),
	)
	m.refreshEnqueued = auto.NewCounterVec(
		m.counterOpts("refresh_enqueued_total", "Refresh jobs accepted, by reason"),
		[]string{"reason"},
	)
	m.refreshRejected = auto.NewCounterVec(
		m.counterOpts("refresh_rejected_total", "Refresh jobs not enqueued, by cause"),
		[]string{"cause"},
	)
	m.refreshProcessed = auto.NewCounterVec(
		m.counterOpts("refresh_processed_total", "Refresh jobs processed by population and status"),
		[]string{"population", "status"},
	)
	m.refreshLatency = auto.NewHistogramVec(
		m.histogramOpts("refresh_latency_milliseconds", "Time from enqueue to completed refresh in milliseconds"),
		[]string{"population"},
	)
	m.refreshWorkersActive = auto.NewGauge(
		m.gaugeOpts("refresh_workers", "Number of running refresh workers"),
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap memory in use in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds"),
	)
}

// sampleSystem records a single runtime sample.
func (m *Manager) sampleSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
	if ms.NumGC > 0 {
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		m.systemGCPauseTime.Observe(float64(pause) / float64(time.Millisecond))
	}
}

// RunSystemCollector samples runtime statistics every refresh interval
// until ctx is done.
func (m *Manager) RunSystemCollector(ctx context.Context) {
	if !m.enabled {
		return
	}
	t := time.NewTicker(m.refreshInterval)
	defer t.Stop()
	m.sampleSystem()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sampleSystem()
		}
	}
}

// Global Metrics Functions

// RecordLeaderboardComputation records one computation of a population.
func RecordLeaderboardComputation(population string, size int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardComputations.WithLabelValues(population).Inc()
	globalManager.computeLatency.WithLabelValues(population).Observe(latencyMs)
	globalManager.populationSize.WithLabelValues(population).Set(float64(size))
}

// RecordMissingMetric counts a pitcher that lacked metric.
func RecordMissingMetric(metric string) {
	if !globalManager.enabled {
		return
	}
	globalManager.missingMetrics.WithLabelValues(metric).Inc()
}

// RecordZeroVariance counts a computation where metric had no spread.
func RecordZeroVariance(metric string) {
	if !globalManager.enabled {
		return
	}
	globalManager.zeroVariance.WithLabelValues(metric).Inc()
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	if !globalManager.enabled {
		return
	}
	globalManager.scoringErrors.Inc()
}

// RecordCacheHit counts a snapshot served by store.
func RecordCacheHit(store string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheHits.WithLabelValues(store).Inc()
}

// RecordCacheMiss counts a snapshot lookup that missed store.
func RecordCacheMiss(store string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheMisses.WithLabelValues(store).Inc()
}

// RecordSnapshotPublished records when and how fast a snapshot was produced.
func RecordSnapshotPublished(population string, at time.Time, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotLastUnix.WithLabelValues(population).Set(float64(at.Unix()))
	globalManager.snapshotLastDurationMs.WithLabelValues(population).Set(durationMs)
}

// RecordSourceQuery records a data source query latency, counting failures.
func RecordSourceQuery(query string, latencyMs float64, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceQueryLatency.WithLabelValues(query).Observe(latencyMs)
	if err != nil {
		globalManager.sourceQueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordRefreshEnqueued counts an accepted refresh job and updates the queue depth.
func RecordRefreshEnqueued(reason string, depth int) {
	if !globalManager.enabled {
		return
	}
	globalManager.refreshEnqueued.WithLabelValues(reason).Inc()
	globalManager.refreshQueueSize.Set(float64(depth))
}

// RecordRefreshRejected counts a refresh job that was not enqueued.
func RecordRefreshRejected(cause string) {
	if !globalManager.enabled {
		return
	}
	globalManager.refreshRejected.WithLabelValues(cause).Inc()
}

// UpdateRefreshQueueSize sets the refresh queue depth.
func UpdateRefreshQueueSize(depth int) {
	if !globalManager.enabled {
		return
	}
	globalManager.refreshQueueSize.Set(float64(depth))
}

// RecordRefreshProcessed records a finished refresh job.
func RecordRefreshProcessed(population string, err error, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	globalManager.refreshProcessed.WithLabelValues(population, status).Inc()
	globalManager.refreshLatency.WithLabelValues(population).Observe(latencyMs)
}

// UpdateRefreshWorkers sets the number of running refresh workers.
func UpdateRefreshWorkers(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.refreshWorkersActive.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RunSystemCollector samples runtime statistics on the global manager.
func RunSystemCollector(ctx context.Context) {
	globalManager.RunSystemCollector(ctx)
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
