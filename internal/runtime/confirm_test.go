package runtime_test

import (
	"testing"

	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseConfirmation(t *testing.T) {
	tests := []struct {
		input  string
		answer bool
		ok     bool
	}{
		{"yes", true, true},
		{" Yes! ", true, true},
		{"Y", true, true},
		{"okay.", true, true},
		{"1", true, true},
		{"no", false, true},
		{"NOPE", false, true},
		{"false", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			answer, ok := runtime.ParseConfirmation(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.answer, answer)
		})
	}
}

func TestSummary(t *testing.T) {
	out := runtime.Summary(domain.BookingSession{
		Origin:      "Paris",
		Destination: "Berlin",
		StartDate:   "2024-05-03",
		EndDate:     "2024-05-10",
		Budget:      "500",
	})

	assert.Contains(t, out, "Please confirm your trip details")
	assert.Contains(t, out, "travelling from : **Paris**")
	assert.Contains(t, out, "to : **Berlin**")
	assert.Contains(t, out, "departure on : **2024-05-03**")
	assert.Contains(t, out, "return on : **2024-05-10**")
	assert.Contains(t, out, "budget is : **500**")
}
