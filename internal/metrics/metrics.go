// Package metrics provides Prometheus metrics collection for event capture
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks capture pipeline counters and syncs them with Prometheus.
// Each instance owns its registry so several clients can coexist.
type Metrics struct {
	registry *prometheus.Registry

	captured          *prometheus.CounterVec
	dropped           *prometheus.CounterVec
	extractions       *prometheus.CounterVec
	transportFailures *prometheus.CounterVec
	deliveryDuration  *prometheus.HistogramVec
	breadcrumbs       prometheus.Gauge

	mu       sync.RWMutex
	counts   map[string]int64
	failures int64
}

// New creates a metrics collector with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		counts:   make(map[string]int64),

		captured: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raven_events_captured_total",
				Help: "Total number of events captured",
			},
			[]string{"level"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raven_events_dropped_total",
				Help: "Total number of events not delivered",
			},
			[]string{"reason"},
		),
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raven_frame_extractions_total",
				Help: "Total number of frame extractions by strategy",
			},
			[]string{"strategy"},
		),
		transportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raven_transport_failures_total",
				Help: "Total number of failed transport sends",
			},
			[]string{"transport"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raven_delivery_duration_seconds",
				Help:    "Time spent delivering an event to all transports",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		breadcrumbs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "raven_breadcrumbs",
				Help: "Number of breadcrumbs currently buffered",
			},
		),
	}

	m.registry.MustRegister(
		m.captured,
		m.dropped,
		m.extractions,
		m.transportFailures,
		m.deliveryDuration,
		m.breadcrumbs,
	)
	return m
}

// Registry returns the Prometheus registry holding these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) bump(key string, n int64) {
	m.mu.Lock()
	m.counts[key] += n
	m.mu.Unlock()
}

// RecordCaptured records an event handed to transports
func (m *Metrics) RecordCaptured(level string) {
	m.bump("captured", 1)
	m.captured.WithLabelValues(level).Inc()
}

// RecordDropped records an event that was not delivered
func (m *Metrics) RecordDropped(reason string) {
	m.bump("dropped", 1)
	m.bump("dropped_"+reason, 1)
	m.dropped.WithLabelValues(reason).Inc()
}

// RecordExtraction records the strategy a frame extraction used
func (m *Metrics) RecordExtraction(strategy string) {
	m.bump("extraction_"+strategy, 1)
	m.extractions.WithLabelValues(strategy).Inc()
}

// RecordTransportFailure records a failed send on one transport
func (m *Metrics) RecordTransportFailure(transport string) {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
	m.transportFailures.WithLabelValues(transport).Inc()
}

// RecordDelivery records how long a delivery took
func (m *Metrics) RecordDelivery(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.deliveryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetBreadcrumbs updates the buffered breadcrumb gauge
func (m *Metrics) SetBreadcrumbs(n int) {
	m.breadcrumbs.Set(float64(n))
}

// Reset clears the snapshot counters (useful for testing)
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.counts = make(map[string]int64)
	m.failures = 0
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current counters
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.counts)+1)
	for k, v := range m.counts {
		out[k] = v
	}
	out["transport_failures"] = m.failures
	return out
}
