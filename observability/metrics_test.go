package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.EventsIngestedTotal == nil || m.AttemptsTotal == nil || m.AttemptLatency == nil {
		t.Fatal("instruments should not be nil")
	}
	if m.PendingEvents == nil || m.DLQSize == nil || m.EscalationsTotal == nil {
		t.Fatal("gauges should not be nil")
	}

	// Registering the same instruments twice must fail.
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	NewMetrics(reg)
}

func TestRecordAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordAttempt("success", 0.5)
	m.RecordAttempt("success", 1.2)
	m.RecordAttempt("failed", 0.3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		switch f.GetName() {
		case "hookgate_delivery_attempts_total":
			found = true
			if len(f.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(f.GetMetric()))
			}
		case "hookgate_delivery_latency_seconds":
			if got := f.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
				t.Fatalf("expected 3 latency samples, got %d", got)
			}
		}
	}
	if !found {
		t.Fatal("hookgate_delivery_attempts_total metric not found")
	}
}

func TestEventsIngestedTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EventsIngestedTotal.Inc()
	m.EventsIngestedTotal.Inc()
	m.EventsIngestedTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, f := range families {
		if f.GetName() == "hookgate_events_ingested_total" {
			val := f.GetMetric()[0].GetCounter().GetValue()
			if val != 3 {
				t.Fatalf("expected count 3, got %f", val)
			}
			return
		}
	}
	t.Fatal("hookgate_events_ingested_total metric not found")
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.DLQSize.Set(42)
	m.PendingEvents.Set(100)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	gauges := map[string]float64{
		"hookgate_dlq_size":       42,
		"hookgate_pending_events": 100,
	}

	for _, f := range families {
		expected, ok := gauges[f.GetName()]
		if !ok {
			continue
		}
		val := f.GetMetric()[0].GetGauge().GetValue()
		if val != expected {
			t.Fatalf("%s: expected %f, got %f", f.GetName(), expected, val)
		}
		delete(gauges, f.GetName())
	}

	if len(gauges) > 0 {
		t.Fatalf("metrics not found: %v", gauges)
	}
}
