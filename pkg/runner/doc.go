/*
Package runner sits between transports (CLI, HTTP, MCP) and the booking flow.

The Dispatcher loads the suspended flow of a session, handles the global
interrupts ("help", "?", "cancel", "quit"), lets the sequencer run the turn
and persists the result. Flows that complete or are cancelled are removed
from the store.

# Usage

	d := runner.NewDispatcher(
		session.NewManager(memory.NewStore()),
		runtime.NewSequencer(runtime.WithReporter(reporter)),
		runner.WithLogger(logger),
	)

	reply, err := d.Start(ctx, "", domain.BookingSession{Origin: "Paris"})
	if err != nil {
		return err
	}
	reply, err = d.Turn(ctx, reply.SessionID, "Berlin")

Inputs are sanitised before they reach the flow: oversized or invalid UTF-8
inputs are rejected and terminal control characters are stripped.
*/
package runner
