package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AttributionMetrics groups the collectors recorded by the attribution engine.
type AttributionMetrics struct {
	stores   *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

var (
	attributionOnce     sync.Once
	attributionRegistry *AttributionMetrics
)

// Attribution returns the lazily-initialised attribution metrics registered
// with the default Prometheus registerer.
func Attribution() *AttributionMetrics {
	attributionOnce.Do(func() {
		attributionRegistry = &AttributionMetrics{
			stores: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "attribution",
				Name:      "stores_total",
				Help:      "Identifier store attempts segmented by decision (store, replace, skip).",
			}, []string{"decision"}),
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Backend API calls segmented by endpoint and outcome.",
			}, []string{"endpoint", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "affiliate",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for backend API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "attribution",
				Name:      "fallbacks_total",
				Help:      "Recovered failures segmented by step and reason.",
			}, []string{"step", "reason"}),
		}
		prometheus.MustRegister(
			attributionRegistry.stores,
			attributionRegistry.requests,
			attributionRegistry.latency,
			attributionRegistry.events,
		)
	})
	return attributionRegistry
}

// RecordStore counts one identifier store decision.
func (m *AttributionMetrics) RecordStore(decision string) {
	if m == nil {
		return
	}
	m.stores.WithLabelValues(decision).Inc()
}

// ObserveRequest records the outcome and latency of a backend call.
func (m *AttributionMetrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordFallback counts a locally recovered failure.
func (m *AttributionMetrics) RecordFallback(step, reason string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(step, reason).Inc()
}

// StoreCount returns the current counter for a decision. Used by tests.
func (m *AttributionMetrics) StoreCount(decision string) prometheus.Counter {
	return m.stores.WithLabelValues(decision)
}

// RequestCount returns the current counter for an endpoint/outcome pair.
func (m *AttributionMetrics) RequestCount(endpoint, outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(endpoint, outcome)
}

// FallbackCount returns the counter for a recovered failure.
func (m *AttributionMetrics) FallbackCount(step, reason string) prometheus.Counter {
	return m.events.WithLabelValues(step, reason)
}
