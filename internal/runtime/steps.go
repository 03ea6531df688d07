package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/timex"
)

// exec runs the entry action of a step. prior is the result of the previous
// step: the user's answer, a sub-flow value or a pre-filled field.
func (s *Sequencer) exec(ctx context.Context, t *turn, step domain.Step, prior string) (domain.StepResult, error) {
	b := &t.state.Booking

	switch step {
	case domain.StepCollectOrigin:
		if b.Origin == "" {
			return domain.Prompt(PromptOrigin), nil
		}
		return domain.Advance(b.Origin), nil

	case domain.StepCollectDestination:
		b.Origin = domain.Capitalize(prior)
		if b.Destination == "" {
			return domain.Prompt(PromptDestination), nil
		}
		return domain.Advance(b.Destination), nil

	case domain.StepCollectStartDate:
		b.Destination = domain.Capitalize(prior)
		if b.StartDate == "" || timex.IsAmbiguous(b.StartDate) {
			return domain.Delegate(domain.SubFlowStartDate, b.StartDate), nil
		}
		return domain.Advance(b.StartDate), nil

	case domain.StepCollectEndDate:
		b.StartDate = prior
		if b.EndDate == "" || timex.IsAmbiguous(b.EndDate) {
			return domain.Delegate(domain.SubFlowEndDate, b.EndDate), nil
		}
		return domain.Advance(b.EndDate), nil

	case domain.StepCollectBudget:
		b.EndDate = prior
		if b.Budget == "" {
			return domain.Prompt(PromptBudget), nil
		}
		return domain.Advance(b.Budget), nil

	case domain.StepConfirm:
		b.Budget = prior
		return domain.Confirm(Summary(*b)), nil

	case domain.StepFinalize:
		if prior == "true" {
			s.track(ctx, t.state, domain.EventBookingAccepted, domain.SeverityInfo)
			return domain.Complete(*b), nil
		}
		s.track(ctx, t.state, domain.EventBookingRefused, domain.SeverityWarning)
		t.reply.Say(domain.MessageText, MessageApology)
		return domain.Cancelled(), nil
	}

	return domain.StepResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownStep, step)
}
