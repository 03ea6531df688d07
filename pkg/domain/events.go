package domain

import (
	"context"
	"time"
)

// Severity of a reported event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome event names.
const (
	EventBookingAccepted = "booking_accepted"
	EventBookingRefused  = "booking_refused"
)

// Event is a structured telemetry record.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Name       string            `json:"name"`
	Severity   Severity          `json:"severity"`
	SessionID  string            `json:"session_id,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// StepEvent represents entry into a step or a sub-flow delegation.
type StepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Step      Step      `json:"step"`
	SubFlow   SubFlowID `json:"sub_flow,omitempty"`
}

// LifecycleHooks defines callbacks for sequencer observability.
type LifecycleHooks struct {
	OnStepEnter func(context.Context, *StepEvent)
	OnDelegate  func(context.Context, *StepEvent)
	OnTerminate func(context.Context, *State)
}
