// Package metrics provides Prometheus metrics for the GeoAI console.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	TokenRefreshes     *prometheus.CounterVec
	PollTicksTotal     *prometheus.CounterVec
	PollersActive      prometheus.Gauge
	AlertsTotal        *prometheus.CounterVec
	StaleResponses     *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_api_requests_total",
				Help: "GeoAI REST API requests by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geoai_api_request_duration_seconds",
				Help:    "GeoAI REST API request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_token_refreshes_total",
				Help: "Access token refresh attempts by result.",
			},
			[]string{"result"},
		),
		PollTicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_poll_ticks_total",
				Help: "Poller checks by poller name and outcome.",
			},
			[]string{"poller", "outcome"},
		),
		PollersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "geoai_pollers_active",
				Help: "Number of running pollers.",
			},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_alerts_total",
				Help: "Alerts raised by severity.",
			},
			[]string{"severity"},
		),
		StaleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_stale_responses_total",
				Help: "List responses discarded because a newer request was issued.",
			},
			[]string{"store"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoai_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.APIRequestsTotal)
	reg.MustRegister(m.APIRequestDuration)
	reg.MustRegister(m.TokenRefreshes)
	reg.MustRegister(m.PollTicksTotal)
	reg.MustRegister(m.PollersActive)
	reg.MustRegister(m.AlertsTotal)
	reg.MustRegister(m.StaleResponses)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAPI records one REST API round trip. Methods are nil-safe so
// components can run without metrics.
func (m *Metrics) ObserveAPI(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.APIRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordRefresh counts a token refresh attempt.
func (m *Metrics) RecordRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

// RecordPollTick counts a poller check.
func (m *Metrics) RecordPollTick(poller, outcome string) {
	if m == nil {
		return
	}
	m.PollTicksTotal.WithLabelValues(poller, outcome).Inc()
}

// PollerStarted and PollerStopped track running pollers.
func (m *Metrics) PollerStarted() {
	if m == nil {
		return
	}
	m.PollersActive.Inc()
}

func (m *Metrics) PollerStopped() {
	if m == nil {
		return
	}
	m.PollersActive.Dec()
}

// RecordAlert counts a raised alert.
func (m *Metrics) RecordAlert(severity string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(severity).Inc()
}

// RecordStale counts a discarded out-of-order response.
func (m *Metrics) RecordStale(store string) {
	if m == nil {
		return
	}
	m.StaleResponses.WithLabelValues(store).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
