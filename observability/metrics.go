// Package observability holds the gateway's Prometheus instruments and
// OpenTelemetry tracer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds metric instruments for the gateway.
type Metrics struct {
	EventsIngestedTotal prometheus.Counter
	EventsDroppedTotal  prometheus.Counter
	AttemptsTotal       *prometheus.CounterVec
	AttemptLatency      prometheus.Histogram
	EscalationsTotal    prometheus.Counter
	PendingEvents       prometheus.Gauge
	DLQSize             prometheus.Gauge
}

// NewMetrics creates the gateway's instruments and registers them on reg.
// Use prometheus.DefaultRegisterer to expose them on the default /metrics
// handler, or a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookgate_events_ingested_total",
			Help: "Inbound events accepted and persisted.",
		}),
		EventsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookgate_events_dropped_total",
			Help: "Inbound events discarded by a drop rule.",
		}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookgate_delivery_attempts_total",
			Help: "Outbound delivery attempts by outcome.",
		}, []string{"status"}),
		AttemptLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hookgate_delivery_latency_seconds",
			Help:    "Latency of outbound delivery attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookgate_escalations_total",
			Help: "Events moved to the dead-letter queue.",
		}),
		PendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hookgate_pending_events",
			Help: "Events due for delivery at the last poll.",
		}),
		DLQSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hookgate_dlq_size",
			Help: "Dead-letter entries not yet replayed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.EventsIngestedTotal,
			m.EventsDroppedTotal,
			m.AttemptsTotal,
			m.AttemptLatency,
			m.EscalationsTotal,
			m.PendingEvents,
			m.DLQSize,
		)
	}
	return m
}

// RecordAttempt records a delivery attempt with the given status and latency.
func (m *Metrics) RecordAttempt(status string, latencySeconds float64) {
	m.AttemptsTotal.WithLabelValues(status).Inc()
	m.AttemptLatency.Observe(latencySeconds)
}
