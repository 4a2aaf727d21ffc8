package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodus-ai/agentpool/pkg/pool"
)

// Metrics holds the pool's Prometheus collectors. A dedicated registry keeps
// test servers from colliding on the global one.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	a2aTotal        *prometheus.CounterVec
	reloadsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the pool collectors.
func NewMetrics(table *pool.Table) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentpool_http_requests_total",
			Help: "HTTP requests served, by method, route pattern, and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentpool_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		a2aTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentpool_a2a_requests_total",
			Help: "A2A dispatches, by agent and outcome.",
		}, []string{"agent", "outcome"}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentpool_reloads_total",
			Help: "Agent reload operations, by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.a2aTotal,
		m.reloadsTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "agentpool_mounted_agents",
			Help: "Number of entries in the mount table.",
		}, func() float64 { return float64(table.Len()) }),
	)

	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveDispatch records one A2A dispatch outcome ("ok", "rpc_error",
// "internal_error", "invalid_request").
func (m *Metrics) ObserveDispatch(agent, outcome string) {
	m.a2aTotal.WithLabelValues(agent, outcome).Inc()
}

// ObserveReload records one reload outcome per agent.
func (m *Metrics) ObserveReload(outcome string) {
	m.reloadsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
