// Package metrics provides Prometheus metrics for the homedash service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Poll outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
	OutcomeDropped = "dropped"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Polling
	pollTotal       *prometheus.CounterVec
	pollLatency     *prometheus.HistogramVec
	pollLastSuccess *prometheus.GaugeVec
	activeTasks     prometheus.Gauge

	// Credentials
	tokenRefresh *prometheus.CounterVec

	// Reference data
	referenceLoads *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "homedash",
		subsystem:        "",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
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

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	if !m.enabled {
		auto = promauto.With(nil)
	}
	constLabels := prometheus.Labels(m.customLabels)

	m.pollTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_total",
		Help:        "Polling task invocations by source and outcome",
		ConstLabels: constLabels,
	}, []string{"source", "outcome"})

	m.pollLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_latency_milliseconds",
		Help:        "Latency of polling fetches in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"source"})

	m.pollLastSuccess = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_last_success_timestamp_seconds",
		Help:        "Unix time of the last successful fetch per source",
		ConstLabels: constLabels,
	}, []string{"source"})

	m.activeTasks = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "active_tasks",
		Help:        "Number of running polling tasks",
		ConstLabels: constLabels,
	})

	m.tokenRefresh = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "token_refresh_total",
		Help:        "OAuth credential refresh attempts by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.referenceLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reference_loads_total",
		Help:        "Transit reference data loads by dataset and outcome",
		ConstLabels: constLabels,
	}, []string{"dataset", "outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Allocated heap bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// RecordPoll counts one polling invocation.
func RecordPoll(source, outcome string) {
	globalManager.pollTotal.WithLabelValues(source, outcome).Inc()
}

// RecordPollLatency records fetch latency in milliseconds.
func RecordPollLatency(source string, latencyMs float64) {
	globalManager.pollLatency.WithLabelValues(source).Observe(latencyMs)
}

// UpdatePollLastSuccess stamps the last successful fetch time.
func UpdatePollLastSuccess(source string, at time.Time) {
	globalManager.pollLastSuccess.WithLabelValues(source).Set(float64(at.Unix()))
}

// UpdateActiveTasks sets the running task count.
func UpdateActiveTasks(count int) {
	globalManager.activeTasks.Set(float64(count))
}

// AddActiveTasks adjusts the running task count by delta.
func AddActiveTasks(delta int) {
	globalManager.activeTasks.Add(float64(delta))
}

// RecordTokenRefresh counts a credential refresh attempt.
func RecordTokenRefresh(outcome string) {
	globalManager.tokenRefresh.WithLabelValues(outcome).Inc()
}

// RecordReferenceLoad counts a reference dataset load.
func RecordReferenceLoad(dataset, outcome string) {
	globalManager.referenceLoads.WithLabelValues(dataset, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
