package observability

import (
	"context"

	"github.com/aretw0/tripflow/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceReporter records events on the span carried by the context.
// Without an active span the event is dropped by the no-op span.
type TraceReporter struct{}

// Track implements ports.Reporter.
func (TraceReporter) Track(ctx context.Context, event domain.Event) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	attrs := make([]attribute.KeyValue, 0, 2+len(event.Properties))
	attrs = append(attrs,
		attribute.String("severity", string(event.Severity)),
		attribute.String("session_id", event.SessionID),
	)
	for k, v := range event.Properties {
		attrs = append(attrs, attribute.String(k, v))
	}
	opts := []trace.EventOption{trace.WithAttributes(attrs...)}
	if !event.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(event.Timestamp))
	}
	span.AddEvent(event.Name, opts...)
	return nil
}
