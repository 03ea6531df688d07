package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/timex"
)

// ErrUnrecognizedDate is returned by interpreters that cannot map input to a date.
var ErrUnrecognizedDate = errors.New("unrecognized date")

// DateInterpreter maps free text to a TIMEX expression.
// Recognizers (NLU services) implement it; LayoutInterpreter is the built-in fallback.
type DateInterpreter interface {
	Interpret(ctx context.Context, input string) (string, error)
}

// DefaultLayouts are the calendar formats accepted by LayoutInterpreter.
var DefaultLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// LayoutInterpreter accepts TIMEX expressions and a fixed list of date layouts.
type LayoutInterpreter struct {
	Layouts []string
}

// Interpret implements DateInterpreter.
func (l LayoutInterpreter) Interpret(_ context.Context, input string) (string, error) {
	s := strings.TrimSpace(input)
	if _, err := timex.Parse(s); err == nil {
		return s, nil
	}

	layouts := l.Layouts
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			return timex.FromDate(d), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedDate, input)
}

// DateResolver is the sub-flow that insists until it gets a definite date.
type DateResolver struct {
	prompt      string
	interpreter DateInterpreter
}

// NewDateResolver creates a resolver for the given sub-flow.
func NewDateResolver(id domain.SubFlowID, interpreter DateInterpreter) *DateResolver {
	if interpreter == nil {
		interpreter = LayoutInterpreter{}
	}
	prompt := PromptStartDate
	if id == domain.SubFlowEndDate {
		prompt = PromptEndDate
	}
	return &DateResolver{prompt: prompt, interpreter: interpreter}
}

// Begin implements ports.SubFlow.
// An empty seed gets the initial question, a partial one the retry text.
func (r *DateResolver) Begin(_ context.Context, frame domain.Frame) domain.StepResult {
	if frame.Seed == "" {
		return domain.Prompt(r.prompt)
	}
	if !timex.IsAmbiguous(frame.Seed) {
		return domain.Advance(frame.Seed)
	}
	return domain.Prompt(PromptDateRetry)
}

// Continue implements ports.SubFlow.
func (r *DateResolver) Continue(ctx context.Context, _ domain.Frame, input string) domain.StepResult {
	expr, err := r.interpreter.Interpret(ctx, input)
	if err != nil || timex.IsAmbiguous(expr) {
		return domain.Prompt(PromptDateRetry)
	}
	return domain.Advance(expr)
}
