package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCancellationRequested is returned when the host cancelled a turn.
// The session must be discarded without reporting an outcome.
var ErrCancellationRequested = errors.New("cancellation requested")

// ErrFlowTerminated is returned when input is fed to a completed or cancelled flow.
var ErrFlowTerminated = errors.New("flow already terminated")

// ErrUnknownSubFlow is returned when a step delegates to a sub-flow that was never registered.
var ErrUnknownSubFlow = errors.New("unknown sub-flow")

// ErrUnknownStep is returned when a state points at a step outside the waterfall.
var ErrUnknownStep = errors.New("unknown step")
