// Package metrics provides Prometheus metrics for the gradebook service.
//
// A Manager owns its own registry. It implements core.Observer, so the loader
// reports load paths and filter activity directly, and the web layer records
// imports and HTTP traffic through it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry
	runtime          bool

	// Loader metrics
	loads              *prometheus.CounterVec
	loadDuration       *prometheus.HistogramVec
	rowsLoaded         prometheus.Gauge
	rowsDropped        prometheus.Counter
	validationFailures prometheus.Counter

	// Import metrics
	imports       *prometheus.CounterVec
	importsActive prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ core.Observer = (*Manager)(nil)

// NewManager creates a metrics manager. Without WithRegistry it uses a fresh
// registry, so managers never collide on the global default.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gradebook",
		histogramBuckets: prometheus.DefBuckets,
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.loads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "loader",
		Name:      "loads_total",
		Help:      "Total number of successful loads by path (hot, cache, cold)",
	}, []string{"path"})

	m.loadDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "loader",
		Name:      "load_duration_seconds",
		Help:      "Load duration in seconds by path",
		Buckets:   m.histogramBuckets,
	}, []string{"path"})

	m.rowsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "loader",
		Name:      "rows_loaded",
		Help:      "Number of rows in the most recently loaded table",
	})

	m.rowsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "loader",
		Name:      "rows_dropped_total",
		Help:      "Total number of rows removed by the error filter",
	})

	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "loader",
		Name:      "validation_failures_total",
		Help:      "Total number of tables rejected by validation",
	})

	m.imports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "imports_total",
		Help:      "Total number of import attempts by status",
	}, []string{"status"})

	m.importsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "active",
		Help:      "Number of imports currently being processed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})

	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoadObserved records a successful load.
func (m *Manager) LoadObserved(path string, d time.Duration, rows int) {
	m.loads.WithLabelValues(path).Inc()
	m.loadDuration.WithLabelValues(path).Observe(d.Seconds())
	m.rowsLoaded.Set(float64(rows))
}

// RowsDropped records rows removed by the error filter.
func (m *Manager) RowsDropped(n int) {
	if n > 0 {
		m.rowsDropped.Add(float64(n))
	}
}

// ValidationFailed records a rejected table.
func (m *Manager) ValidationFailed() {
	m.validationFailures.Inc()
}

// ImportStarted marks an import as in flight.
func (m *Manager) ImportStarted() {
	m.importsActive.Inc()
}

// ImportFinished records the outcome of an import started with ImportStarted.
func (m *Manager) ImportFinished(status string) {
	m.importsActive.Dec()
	m.imports.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(d.Seconds())
}
