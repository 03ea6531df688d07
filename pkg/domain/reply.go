package domain

// MessageType classifies a message sent to the user.
type MessageType string

const (
	MessageText     MessageType = "text"     // Informational text
	MessageMarkdown MessageType = "markdown" // Rich text to be rendered
	MessageSystem   MessageType = "system"   // Meta-message (help, cancelling)
)

// Message is a single piece of output for the user.
type Message struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// Reply is what the host shows the user after a turn.
type Reply struct {
	SessionID string          `json:"session_id"`
	Status    ExecutionStatus `json:"status"`
	Messages  []Message       `json:"messages,omitempty"`

	// Prompt is set when the flow is waiting for input.
	Prompt *StepResult `json:"prompt,omitempty"`

	// Booking is set only when the flow completed.
	Booking *BookingSession `json:"booking,omitempty"`
}

// Say appends a message to the reply.
func (r *Reply) Say(t MessageType, text string) {
	r.Messages = append(r.Messages, Message{Type: t, Text: text})
}
