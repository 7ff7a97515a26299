// Package metrics provides Prometheus instrumentation for the lifecycle
// layer. Collectors are created against an explicit registerer; a nil
// *Lifecycle disables collection with zero overhead, so callers never
// need to guard their calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lifecycle instruments lifecycle transitions and live collections.
type Lifecycle struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	collections    prometheus.Gauge
	teardownErrors prometheus.Counter
	initDuration   prometheus.Histogram
}

// NewLifecycle creates the lifecycle collectors on a fresh registry.
func NewLifecycle() *Lifecycle {
	registry := prometheus.NewRegistry()

	return &Lifecycle{
		registry: registry,
		transitions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "berth_lifecycle_transitions_total",
				Help: "Total number of lifecycle state transitions",
			},
			[]string{"from", "to"},
		),
		collections: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "berth_live_collections",
				Help: "Number of currently live collections",
			},
		),
		teardownErrors: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "berth_teardown_errors_total",
				Help: "Total number of teardowns that reported an aggregate error",
			},
		),
		initDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "berth_initialize_duration_seconds",
				Help:    "Duration of lifecycle initialization",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordTransition counts one state transition.
func (m *Lifecycle) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// SetLiveCollections updates the live collection gauge.
func (m *Lifecycle) SetLiveCollections(count int) {
	if m == nil {
		return
	}
	m.collections.Set(float64(count))
}

// RecordTeardownError counts a teardown that reported an error.
func (m *Lifecycle) RecordTeardownError() {
	if m == nil {
		return
	}
	m.teardownErrors.Inc()
}

// ObserveInitializeDuration records one initialize duration in seconds.
func (m *Lifecycle) ObserveInitializeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.initDuration.Observe(seconds)
}

// Handler returns an HTTP handler exposing the metrics registry, or nil
// when metrics are disabled.
func (m *Lifecycle) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
