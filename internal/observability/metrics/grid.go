// Package metrics provides Prometheus collectors for the grid engine and HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// GridMetrics records engine operations. It implements core.MetricsRecorder.
type GridMetrics struct {
	views        *prometheus.CounterVec
	viewRows     *prometheus.HistogramVec
	viewDuration *prometheus.HistogramVec

	syncOps      *prometheus.CounterVec
	syncRecords  *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec

	editedRows *prometheus.CounterVec
	sessions   prometheus.Gauge

	collectors []prometheus.Collector
}

// NewGridMetrics creates and registers grid metrics.
func NewGridMetrics(registry prometheus.Registerer) (*GridMetrics, error) {
	m := &GridMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GridMetrics) initMetrics() {
	m.views = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_views_total",
			Help: "Total number of rendered grid views",
		},
		[]string{"section", "cache"},
	)

	m.viewRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grid_view_rows",
			Help:    "Number of flattened rows per rendered view",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160k
		},
		[]string{"section"},
	)

	m.viewDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grid_view_duration_seconds",
			Help:    "Time taken to build a grid view",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
		[]string{"cache"},
	)

	m.syncOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_backend_operations_total",
			Help: "Total number of backend pulls and pushes",
		},
		[]string{"operation", "status"},
	)

	m.syncRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_backend_records_total",
			Help: "Total number of records transferred with the backend",
		},
		[]string{"operation"},
	)

	m.syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grid_backend_duration_seconds",
			Help:    "Time taken by backend pulls and pushes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.editedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_edited_rows_total",
			Help: "Total number of rows changed by field edits",
		},
		[]string{"field"},
	)

	m.sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_sessions",
			Help: "Number of open grid sessions",
		},
	)

	m.collectors = []prometheus.Collector{
		m.views, m.viewRows, m.viewDuration,
		m.syncOps, m.syncRecords, m.syncDuration,
		m.editedRows, m.sessions,
	}
}

// Describe implements the Collector interface
func (m *GridMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *GridMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// ObserveView records one view render.
func (m *GridMetrics) ObserveView(section string, rows int, cached bool, d time.Duration) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.views.WithLabelValues(section, cache).Inc()
	m.viewDuration.WithLabelValues(cache).Observe(d.Seconds())
	if !cached {
		m.viewRows.WithLabelValues(section).Observe(float64(rows))
	}
}

// ObservePull records a backend pull.
func (m *GridMetrics) ObservePull(records int, err error, d time.Duration) {
	m.observeSync("pull", records, err, d)
}

// ObservePush records a backend push.
func (m *GridMetrics) ObservePush(records int, err error, d time.Duration) {
	m.observeSync("push", records, err, d)
}

func (m *GridMetrics) observeSync(op string, records int, err error, d time.Duration) {
	m.syncOps.WithLabelValues(op, statusLabel(err)).Inc()
	m.syncDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		m.syncRecords.WithLabelValues(op).Add(float64(records))
	}
}

// ObserveEdit records rows changed by an edit.
func (m *GridMetrics) ObserveEdit(field string, updated int) {
	m.editedRows.WithLabelValues(field).Add(float64(updated))
}

// SetSessions sets the open session gauge.
func (m *GridMetrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
