package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tripflow"
	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chat(t *testing.T, engine *tripflow.Engine, prefill domain.BookingSession, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := Chat(context.Background(), engine, ChatOptions{
		SessionID: "cli",
		Prefill:   prefill,
		In:        strings.NewReader(input),
		Out:       &out,
	})
	require.NoError(t, err)
	return out.String()
}

func TestChat_FullConversation(t *testing.T) {
	engine := tripflow.New()
	out := chat(t, engine, domain.BookingSession{}, "paris\nberlin\n2024-05-03\nMay 10, 2024\n500\nyes\n")

	for _, want := range []string{
		runtime.PromptOrigin,
		runtime.PromptDestination,
		runtime.PromptStartDate,
		runtime.PromptEndDate,
		runtime.PromptBudget,
		"- You will be travelling from : **Paris**",
		"[Yes] [No]",
		">>> Booked: Paris to Berlin, 2024-05-03 to 2024-05-10, budget 500.",
	} {
		assert.Contains(t, out, want)
	}

	ids, err := engine.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChat_Refused(t *testing.T) {
	out := chat(t, tripflow.New(), domain.BookingSession{
		Origin: "paris", Destination: "berlin", StartDate: "2024-05-03", EndDate: "2024-05-10", Budget: "500",
	}, "maybe\nno\n")

	assert.Contains(t, out, runtime.PromptConfirmRetry)
	assert.Contains(t, out, runtime.MessageApology)
	assert.NotContains(t, out, "Booked:")
}

func TestChat_HelpAndCancel(t *testing.T) {
	engine := tripflow.New()
	out := chat(t, engine, domain.BookingSession{}, "help\ncancel\n")

	assert.Contains(t, out, ">>> Show help here")
	assert.Equal(t, 2, strings.Count(out, runtime.PromptOrigin), "help repeats the prompt")
	assert.Contains(t, out, ">>> Cancelling")

	_, err := engine.State(context.Background(), "cli")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChat_InputClosed(t *testing.T) {
	engine := tripflow.New()
	out := chat(t, engine, domain.BookingSession{}, "paris\n")

	assert.Contains(t, out, ">>> Input closed.")
	st, err := engine.State(context.Background(), "cli")
	require.NoError(t, err, "an unfinished flow stays in the store")
	assert.Equal(t, domain.StepCollectDestination, st.Step)
}

func TestChat_RejectedInputContinues(t *testing.T) {
	engine := tripflow.New(tripflow.WithMaxInputSize(8))
	out := chat(t, engine, domain.BookingSession{}, "a city name that is too long\nparis\n")

	assert.Contains(t, out, ">>> Input rejected")
	assert.Contains(t, out, runtime.PromptDestination)
}

func TestChat_CancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := Chat(ctx, tripflow.New(), ChatOptions{In: strings.NewReader(""), Out: &out})
	assert.ErrorIs(t, err, domain.ErrCancellationRequested)
}
