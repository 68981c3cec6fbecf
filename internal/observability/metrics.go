package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	searchEvaluation *prometheus.CounterVec
	txRollbacks      *prometheus.CounterVec
}

// NewMetrics builds a private registry so tests can create as many instances
// as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "HTTP requests served, by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		searchEvaluation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_search_evaluations_total",
			Help: "Search filter evaluations by outcome.",
		}, []string{"outcome"}),
		txRollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_tx_rollbacks_total",
			Help: "Rolled back mutating transactions by operation.",
		}, []string{"operation"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.searchEvaluation,
		m.txRollbacks,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) SearchEvaluated(outcome string) {
	if m == nil {
		return
	}
	m.searchEvaluation.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TxRolledBack(operation string) {
	if m == nil {
		return
	}
	m.txRollbacks.WithLabelValues(operation).Inc()
}
