package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Relay metrics
	RelayOutcomes *prometheus.CounterVec
	RelayDuration prometheus.Histogram

	// Account metrics
	AccountOps *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry, so several
// instances can coexist in one process (tests, Lambda warm starts).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spirolink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spirolink_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		RelayOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spirolink_chat_relay_total",
				Help: "Chat relay calls by outcome code",
			},
			[]string{"code"},
		),
		RelayDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spirolink_chat_relay_duration_seconds",
				Help:    "Chat relay duration in seconds, upstream call included",
				Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60},
			},
		),
		AccountOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spirolink_account_operations_total",
				Help: "Account operations by name and outcome code",
			},
			[]string{"operation", "code"},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRelay records one relay call. code is "OK" on success.
func (m *Metrics) RecordRelay(code string, duration time.Duration) {
	m.RelayOutcomes.WithLabelValues(code).Inc()
	m.RelayDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordAccountOp(operation, code string) {
	m.AccountOps.WithLabelValues(operation, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
