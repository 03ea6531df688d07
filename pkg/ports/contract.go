package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, domain.BookingSession{Origin: "Paris", Budget: "500"})
		state.Step = domain.StepCollectStartDate
		state.Status = domain.StatusWaiting
		state.Push(domain.Frame{SubFlow: domain.SubFlowStartDate, ReturnTo: domain.StepCollectStartDate, Seed: "XXXX-WXX-5"})
		pending := domain.Prompt("On what date would you like to travel?")
		state.Pending = &pending

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Step, loaded.Step)
		assert.Equal(t, state.Status, loaded.Status)
		assert.Equal(t, state.Booking, loaded.Booking)
		assert.Equal(t, state.Stack, loaded.Stack)
		require.NotNil(t, loaded.Pending)
		assert.Equal(t, pending.Text, loaded.Pending.Text)
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Booking.Origin = "Mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Paris", again.Booking.Origin)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, domain.BookingSession{}))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 sessions
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, domain.BookingSession{}))
		_ = store.Save(ctx, id2, domain.NewState(id2, domain.BookingSession{}))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
