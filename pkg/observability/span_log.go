package observability

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogSpanExporter writes ended spans to a structured logger at debug level.
type LogSpanExporter struct {
	logger *slog.Logger
}

// NewLogSpanExporter creates an exporter that logs through logger.
func NewLogSpanExporter(logger *slog.Logger) *LogSpanExporter {
	return &LogSpanExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		events := make([]string, 0, len(s.Events()))
		for _, ev := range s.Events() {
			events = append(events, ev.Name)
		}
		e.logger.DebugContext(ctx, "span",
			"name", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"duration", s.EndTime().Sub(s.StartTime()),
			"status", s.Status().Code.String(),
			"events", events,
		)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogSpanExporter) Shutdown(context.Context) error {
	return nil
}

// NewTracerProvider returns an SDK provider that exports synchronously to the logger.
func NewTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogSpanExporter(logger)))
}
