package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/hookgate"

// Tracer provides OpenTelemetry tracing for delivery rounds.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return NewTracerFrom(otel.GetTracerProvider())
}

// NewTracerFrom creates a tracer from an explicit provider.
func NewTracerFrom(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

// StartRoundSpan starts a span covering one delivery round of an event.
func (t *Tracer) StartRoundSpan(ctx context.Context, eventID, endpointID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookgate.delivery_round",
		trace.WithAttributes(
			attribute.String("hookgate.event_id", eventID),
			attribute.String("hookgate.endpoint_id", endpointID),
			attribute.Int("hookgate.attempt", attempt),
		),
	)
}

// EndRoundSpan ends a round span with the resulting event status.
func (t *Tracer) EndRoundSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("hookgate.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartAttemptSpan starts a span for one destination attempt.
func (t *Tracer) StartAttemptSpan(ctx context.Context, destination string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookgate.delivery_attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("hookgate.destination", destination)),
	)
}

// EndAttemptSpan ends an attempt span with result attributes.
func (t *Tracer) EndAttemptSpan(span trace.Span, statusCode int, latencyMs int64, errMsg string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int64("hookgate.latency_ms", latencyMs),
	)
	if errMsg != "" {
		span.SetAttributes(attribute.String("hookgate.error", errMsg))
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}
