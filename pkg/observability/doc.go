/*
Package observability provides telemetry sinks for the booking flow.

Reporters implement ports.Reporter and can be combined with Multi. The
sequencer always wraps its reporter with Safe so that a failing backend is
logged and never aborts a booking.

  - LogReporter writes events to slog (warning severity maps to Warn).
  - MetricsReporter counts outcomes and step visits with Prometheus.
  - TraceReporter attaches events to the OpenTelemetry span in the context.
  - MaskingReporter hides configured property values before other sinks.
  - NewTracerProvider builds an SDK provider that logs ended spans.
*/
package observability
