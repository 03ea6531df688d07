package domain

// ResultKind tags the variant held by a StepResult.
type ResultKind string

const (
	ResultPrompt    ResultKind = "prompt"
	ResultDelegate  ResultKind = "delegate"
	ResultAdvance   ResultKind = "advance"
	ResultComplete  ResultKind = "complete"
	ResultCancelled ResultKind = "cancelled"
)

// InputType defines the kind of input a prompt expects.
type InputType string

const (
	InputText    InputType = "text"
	InputConfirm InputType = "confirm"
)

// StepResult is produced by each step and consumed by the sequencer.
// Only the fields relevant to Kind are set.
type StepResult struct {
	Kind ResultKind `json:"kind"`

	// Prompt
	Text      string    `json:"text,omitempty"`
	InputType InputType `json:"input_type,omitempty"`
	Choices   []string  `json:"choices,omitempty"`
	Markdown  bool      `json:"markdown,omitempty"`

	// Delegate
	SubFlow SubFlowID `json:"sub_flow,omitempty"`
	Seed    string    `json:"seed,omitempty"`

	// Advance
	Value string `json:"value,omitempty"`

	// Complete
	Booking *BookingSession `json:"booking,omitempty"`
}

// Prompt asks the user for free text.
func Prompt(text string) StepResult {
	return StepResult{Kind: ResultPrompt, Text: text, InputType: InputText}
}

// Confirm asks the user a yes/no question. The text is Markdown.
func Confirm(text string) StepResult {
	return StepResult{
		Kind:      ResultPrompt,
		Text:      text,
		InputType: InputConfirm,
		Choices:   []string{"Yes", "No"},
		Markdown:  true,
	}
}

// Delegate hands control to a sub-flow seeded with a (possibly partial) value.
func Delegate(id SubFlowID, seed string) StepResult {
	return StepResult{Kind: ResultDelegate, SubFlow: id, Seed: seed}
}

// Advance moves to the next step, passing value as its prior result.
func Advance(value string) StepResult {
	return StepResult{Kind: ResultAdvance, Value: value}
}

// Complete terminates the flow successfully with the collected booking.
func Complete(b BookingSession) StepResult {
	return StepResult{Kind: ResultComplete, Booking: &b}
}

// Cancelled terminates the flow without a payload.
func Cancelled() StepResult {
	return StepResult{Kind: ResultCancelled}
}
