package ports

import (
	"context"

	"github.com/aretw0/tripflow/pkg/domain"
)

// SubFlow is a self-contained flow that collects a single value on behalf of a step.
//
// Both methods return either a Prompt (keep the frame on the stack and wait
// for the next turn) or an Advance carrying the collected value (pop the frame
// and resume the parent step).
type SubFlow interface {
	// Begin is called when the frame is pushed.
	Begin(ctx context.Context, frame domain.Frame) domain.StepResult

	// Continue is called with the input of each following turn.
	Continue(ctx context.Context, frame domain.Frame, input string) domain.StepResult
}
