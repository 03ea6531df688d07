package observability_test

import (
	"context"
	"testing"

	"github.com/aretw0/tripflow/internal/testutils"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingReporter(t *testing.T) {
	rec := &testutils.Recorder{}
	r, err := observability.NewMaskingReporter(rec, []string{"^budget$", "_city$"})
	require.NoError(t, err)

	props := testutils.FullBooking().Properties()
	require.NoError(t, r.Track(context.Background(), domain.Event{
		Name:       domain.EventBookingAccepted,
		Properties: props,
	}))

	events := rec.Events()
	require.Len(t, events, 1)
	got := events[0].Properties
	assert.Equal(t, observability.MaskedValue, got["budget"])
	assert.Equal(t, observability.MaskedValue, got["origin_city"])
	assert.Equal(t, observability.MaskedValue, got["destination_city"])
	assert.Equal(t, "2024-05-03", got["start_date"])

	assert.Equal(t, "500", props["budget"], "caller map must stay intact")
}

func TestMaskingReporter_NoPatterns(t *testing.T) {
	rec := &testutils.Recorder{}
	r, err := observability.NewMaskingReporter(rec, nil)
	require.NoError(t, err)

	require.NoError(t, r.Track(context.Background(), domain.Event{Properties: map[string]string{"budget": "500"}}))
	assert.Equal(t, "500", rec.Events()[0].Properties["budget"])
}

func TestMaskingReporter_InvalidPattern(t *testing.T) {
	_, err := observability.NewMaskingReporter(nil, []string{"("})
	assert.Error(t, err)
}
