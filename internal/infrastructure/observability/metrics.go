// Package observability exposes Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"konditer/internal/domain/documents/posting"
	"konditer/internal/domain/reconcile"
)

// Metrics collects the service's Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec

	reconcileRuns    *prometheus.CounterVec
	reconcileChanged *prometheus.CounterVec
	reconcileLast    prometheus.Gauge
}

var _ posting.Observer = (*Metrics)(nil)

// NewMetrics creates the registry with process and Go runtime collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konditer_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "konditer_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konditer_document_transitions_total",
			Help: "Document state transitions by type, operation and outcome.",
		}, []string{"document_type", "operation", "outcome"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "konditer_document_transition_duration_seconds",
			Help:    "Time spent inside a posting transaction.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"document_type", "operation"}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konditer_reconcile_runs_total",
			Help: "Balance recomputations by outcome.",
		}, []string{"outcome"}),
		reconcileChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konditer_reconcile_balances_total",
			Help: "Balances touched by recomputation, by result.",
		}, []string{"result"}),
		reconcileLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "konditer_reconcile_last_success_timestamp_seconds",
			Help: "Unix time of the last successful recomputation.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration,
		m.transitions, m.transitionDuration,
		m.reconcileRuns, m.reconcileChanged, m.reconcileLast,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// ObserveTransition implements posting.Observer.
func (m *Metrics) ObserveTransition(docType, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(docType, operation, outcome).Inc()
	m.transitionDuration.WithLabelValues(docType, operation).Observe(elapsed.Seconds())
}

// ObserveReconcile records the result of one recomputation.
func (m *Metrics) ObserveReconcile(summary reconcile.Summary, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconcileRuns.WithLabelValues("error").Inc()
		return
	}
	m.reconcileRuns.WithLabelValues("success").Inc()
	m.reconcileChanged.WithLabelValues("updated").Add(float64(summary.Updated))
	m.reconcileChanged.WithLabelValues("created").Add(float64(summary.Created))
	m.reconcileChanged.WithLabelValues("orphaned").Add(float64(summary.Orphaned))
	m.reconcileLast.SetToCurrentTime()
}
