/*
Package domain contains the core domain models of the trip booking flow.

It defines the booking record collected across turns, the ordered steps of the
waterfall, the step results produced by each step and the continuation token
(State) persisted between turns. This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - BookingSession: the trip data accumulated across steps.
  - Step: one stage of the waterfall (CollectOrigin ... Finalize).
  - StepResult: what a step asks the sequencer to do next.
  - State: the resumption point, the sub-flow stack and the booking.
  - Reply: what the host should show the user after a turn.
*/
package domain
