// Package metrics exposes Prometheus collectors for the aggregation engine, the data
// access RPC client and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobstats"

// Metrics holds every collector the service records into.
type Metrics struct {
	gatherer prometheus.Gatherer

	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	pagesFetched      *prometheus.CounterVec
	upstreamDuration  *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the collectors in a fresh registry, so tests may create as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Wall time of one aggregation request.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_requests_total",
				Help:      "Aggregation requests by outcome.",
			},
			[]string{"operation", "status"},
		),
		pagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_pages_fetched_total",
				Help:      "Pages requested from the data access service.",
			},
			[]string{"operation"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataaccess_call_duration_seconds",
				Help:      "Latency of data access RPCs by method and status code.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP handler latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveOperation records one aggregation request.
func (m *Metrics) ObserveOperation(operation string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	m.operationTotal.WithLabelValues(operation, status).Inc()
}

// ObservePages adds the pages one aggregation pulled.
func (m *Metrics) ObservePages(operation string, pages int) {
	if pages <= 0 {
		return
	}
	m.pagesFetched.WithLabelValues(operation).Add(float64(pages))
}

// ObserveUpstreamCall records one data access RPC.
func (m *Metrics) ObserveUpstreamCall(method, code string, elapsed time.Duration) {
	m.upstreamDuration.WithLabelValues(method, code).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
