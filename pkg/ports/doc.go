/*
Package ports defines the driven ports (interfaces) of the booking flow.

These interfaces decouple the sequencer from external implementations, allowing
it to work with various storage backends, telemetry sinks and sub-flows.

# Key Interfaces

  - StateStore: persists and loads the flow continuation between turns.
  - DistributedLocker: serializes turns of one session across replicas.
  - Reporter: records booking outcome events.
  - SubFlow: collects a value (e.g. a definite date) on behalf of a step.
*/
package ports
