// Package metrics owns the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "revision_history"

// Metrics groups the collectors. Each instance has its own registry so tests
// can build as many as they like.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	enumerations *prometheus.CounterVec
	rows         *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors when
// withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		enumerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enumerations_total",
			Help:      "Revision enumerations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		rows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enumeration_rows",
			Help:      "Revisions returned per successful enumeration.",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.enumerations, m.rows)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveEnumeration records one enumeration. rows is only observed for the
// "ok" outcome.
func (m *Metrics) ObserveEnumeration(mode, outcome string, rows int) {
	m.enumerations.WithLabelValues(mode, outcome).Inc()
	if outcome == "ok" {
		m.rows.WithLabelValues(mode).Observe(float64(rows))
	}
}

// Middleware counts and times requests. Unmatched routes share one label so
// scanners cannot blow up cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
