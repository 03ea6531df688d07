/*
Package tripflow is a turn-based trip booking dialog.

It collects the five details of a trip (origin, destination, travel date,
return date and budget) one question at a time, skips every question whose
answer is already known, asks for confirmation and reports whether the user
accepted or refused the booking.

# Concept

The flow is a fixed waterfall of steps. Each turn the host passes the user's
input, and the engine runs steps until it needs another answer or the flow
ends. Nothing is held in memory between turns: the suspended flow is saved in
a StateStore (in memory or Redis), so turns of the same session can be served
by any process.

Dates are only accepted when they are definite: a full calendar date such as
2024-05-03. Partial answers ("next friday", "in May") start a short
sub-dialog that asks again until the date is unambiguous.

# Usage

	engine := tripflow.New(
		tripflow.WithReporter(observability.NewLogReporter(logger)),
	)

	reply, err := engine.Start(ctx, "", domain.BookingSession{Destination: "Berlin"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Prompt.Text) // Where do you want to leave from?

	reply, err = engine.Turn(ctx, reply.SessionID, "Paris")

# Adapters

  - pkg/adapters/memory, pkg/adapters/redis: state stores and the Redis lock.
  - pkg/adapters/http: REST and SSE transport (chi).
  - pkg/adapters/mcp: the flow as MCP tools for AI agents.
  - pkg/observability: log, Prometheus and OpenTelemetry reporters.
*/
package tripflow
