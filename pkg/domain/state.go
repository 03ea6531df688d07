package domain

import (
	"slices"
	"time"
)

// ExecutionStatus defines the current mode of a flow.
type ExecutionStatus string

const (
	StatusActive    ExecutionStatus = "active"    // Running steps within a turn
	StatusWaiting   ExecutionStatus = "waiting"   // Suspended, waiting for the next turn
	StatusCompleted ExecutionStatus = "completed" // Booking confirmed
	StatusCancelled ExecutionStatus = "cancelled" // Booking refused or interrupted
)

// Terminal reports whether no further turns can be processed.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Frame is a pending sub-flow continuation.
// When the sub-flow produces a value, control returns to the step after ReturnTo.
type Frame struct {
	SubFlow  SubFlowID `json:"sub_flow"`
	ReturnTo Step      `json:"return_to"`
	Seed     string    `json:"seed,omitempty"`
	Attempts int       `json:"attempts"`
}

// State is the continuation token of one booking flow.
type State struct {
	SessionID string          `json:"session_id"`
	Status    ExecutionStatus `json:"status"`

	// Step is the step that suspended the flow.
	Step Step `json:"step"`

	Booking BookingSession `json:"booking"`

	// Stack holds delegated sub-flows; the last frame is the active one.
	Stack []Frame `json:"stack,omitempty"`

	// Pending is the prompt the flow is waiting on.
	Pending *StepResult `json:"pending,omitempty"`

	History []Step `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed is set only on envelopes written by an encrypting store.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates a clean state positioned before the first step.
func NewState(sessionID string, booking BookingSession) *State {
	now := time.Now().UTC()
	return &State{
		SessionID: sessionID,
		Status:    StatusActive,
		Step:      Waterfall[0],
		Booking:   booking,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Top returns the active sub-flow frame, if any.
func (s *State) Top() (*Frame, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	return &s.Stack[len(s.Stack)-1], true
}

// Push records a sub-flow delegation.
func (s *State) Push(f Frame) {
	s.Stack = append(s.Stack, f)
}

// Pop removes and returns the active sub-flow frame.
func (s *State) Pop() (Frame, bool) {
	if len(s.Stack) == 0 {
		return Frame{}, false
	}
	f := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return f, true
}

// Clone returns a deep copy so a turn can work without touching the caller's state.
func (s *State) Clone() *State {
	c := *s
	c.Stack = slices.Clone(s.Stack)
	c.History = slices.Clone(s.History)
	if s.Pending != nil {
		p := *s.Pending
		p.Choices = slices.Clone(s.Pending.Choices)
		if s.Pending.Booking != nil {
			b := *s.Pending.Booking
			p.Booking = &b
		}
		c.Pending = &p
	}
	return &c
}
