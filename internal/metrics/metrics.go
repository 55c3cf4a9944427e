package metrics

import (
	"context"
	"doc-registry/internal/registry"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the registry service.
type Metrics struct {
	registry *prometheus.Registry

	// Operation outcomes by operation and result code
	Operations *prometheus.CounterVec

	// Latency of HTTP requests by route
	RequestLatency *prometheus.HistogramVec

	// Committed registry events by type
	Events *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docregistry_operations_total",
			Help: "Total registry operations by operation and result",
		}, []string{"operation", "result"}), // result: "ok" or the error code

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docregistry_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),

		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docregistry_events_total",
			Help: "Total committed registry events by type",
		}, []string{"type"}),
	}
}

// RegisterGauge exposes a value sampled at scrape time.
func (m *Metrics) RegisterGauge(name, help string, sample func() float64) {
	if m != nil {
		promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, sample)
	}
}

// IncrementOperation records the outcome of a registry operation.
func (m *Metrics) IncrementOperation(operation, result string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, result).Inc()
	}
}

// ObserveRequestLatency records the duration of an HTTP request.
func (m *Metrics) ObserveRequestLatency(route string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}

// Record implements registry.Recorder.
func (m *Metrics) Record(_ context.Context, event registry.Event) {
	if m != nil {
		m.Events.WithLabelValues(string(event.Type)).Inc()
	}
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
