// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "backtest_lab"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	BarsTotal   prometheus.Counter
	FillsTotal  *prometheus.CounterVec

	// Diagnostics by code
	DiagnosticsTotal *prometheus.CounterVec

	// Data metrics
	SeriesLoaded   prometheus.Counter
	BarsStored     *prometheus.CounterVec
	StoreOpErrors  *prometheus.CounterVec
	StoreOpLatency *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy and status",
		}, []string{"strategy", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"strategy"}),
		BarsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_processed_total",
			Help:      "Total number of bars simulated",
		}),
		FillsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "fills_total",
			Help:      "Total number of filled orders by side",
		}, []string{"side"}),
		DiagnosticsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "diagnostics_total",
			Help:      "Total number of run diagnostics by code",
		}, []string{"code"}),

		SeriesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "series_loaded_total",
			Help:      "Total number of asset series loaded",
		}),
		BarsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "bars_stored_total",
			Help:      "Total number of bars written by backend",
		}, []string{"backend"}),
		StoreOpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "store_errors_total",
			Help:      "Total number of bar store errors",
		}, []string{"backend", "operation"}),
		StoreOpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "store_duration_seconds",
			Help:      "Bar store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics of a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ backtest.Recorder = (*Metrics)(nil)

// BarProcessed implements backtest.Recorder.
func (m *Metrics) BarProcessed() {
	m.BarsTotal.Inc()
}

// OrderFilled implements backtest.Recorder.
func (m *Metrics) OrderFilled(side string) {
	m.FillsTotal.WithLabelValues(side).Inc()
}

// DiagnosticReported implements backtest.Recorder.
func (m *Metrics) DiagnosticReported(code domain.Code) {
	m.DiagnosticsTotal.WithLabelValues(string(code)).Inc()
}

// RunFinished implements backtest.Recorder.
func (m *Metrics) RunFinished(strategy string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(strategy, status).Inc()
	m.RunDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordStoreOp records one bar store call.
func (m *Metrics) RecordStoreOp(backend, operation string, elapsed time.Duration, err error) {
	m.StoreOpLatency.WithLabelValues(backend, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordBarsStored adds n written bars for backend.
func (m *Metrics) RecordBarsStored(backend string, n int) {
	m.BarsStored.WithLabelValues(backend).Add(float64(n))
}
