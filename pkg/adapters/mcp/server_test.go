package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/internal/testutils"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/runner"
	"github.com/aretw0/tripflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *testutils.Recorder) {
	t.Helper()
	rec := &testutils.Recorder{}
	d := runner.NewDispatcher(
		session.NewManager(memory.NewStore()),
		runtime.NewSequencer(runtime.WithReporter(rec)),
	)
	return NewServer(d, "test"), rec
}

func TestServer_BookingThroughTools(t *testing.T) {
	s, rec := newTestServer(t)
	ctx := context.Background()

	reply, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "s1",
		"prefill":    `{"origin_city":"paris","dst_city":"berlin","start_date":"2024-05-03","end_date":"2024-05-10"}`,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, runtime.PromptBudget, reply.Prompt.Text)

	reply, err = s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "s1", "input": "500"})
	require.NoError(t, err)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, domain.InputConfirm, reply.Prompt.InputType)

	reply, err = s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "s1", "input": "yes"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, reply.Status)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, "Berlin", reply.Booking.Destination)
	assert.Len(t, rec.Named(domain.EventBookingAccepted), 1)
}

func TestServer_StartGeneratesSessionID(t *testing.T) {
	s, _ := newTestServer(t)

	reply, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.SessionID)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, runtime.PromptOrigin, reply.Prompt.Text)
}

func TestServer_InvalidPrefill(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"prefill": "{not json"})
	assert.Error(t, err)
}

func TestServer_TurnErrors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]interface{}{"input": "paris"})
	assert.Error(t, err)

	_, err = s.handleTurn(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "missing", "input": "paris"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServer_CancelAndResource(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": id})
		require.NoError(t, err)
	}

	reply, err := s.handleCancel(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, reply.Status)

	contents, err := s.readSessions(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(text.Text), &ids))
	assert.Equal(t, []string{"b"}, ids)

	_, err = s.handleCancel(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.Error(t, err)
}
