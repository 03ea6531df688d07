package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/internal/testutils"
	api "github.com/aretw0/tripflow/pkg/adapters/http"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/observability"
	"github.com/aretw0/tripflow/pkg/runner"
	"github.com/aretw0/tripflow/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler  http.Handler
	recorder *testutils.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetricsReporter(reg)
	require.NoError(t, err)

	rec := &testutils.Recorder{}
	seq := runtime.NewSequencer(
		runtime.WithReporter(observability.Multi{rec, metrics}),
		runtime.WithLifecycleHooks(metrics.Hooks()),
	)
	d := runner.NewDispatcher(
		session.NewManager(memory.NewStore()),
		seq,
		runner.WithIDGenerator(func() string { return "generated" }),
	)
	return fixture{
		handler: api.NewHandler(d,
			api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			api.WithVersion("1.2.3"),
		),
		recorder: rec,
	}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) domain.Reply {
	t.Helper()
	var reply domain.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply), w.Body.String())
	return reply
}

func TestServer_Conversation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1","prefill":{"or_city":"paris","budget":500}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reply := decodeReply(t, w)
	assert.Equal(t, "s1", reply.SessionID)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, runtime.PromptDestination, reply.Prompt.Text)

	for _, input := range []string{"berlin", "2024-05-03", "2024-05-10"} {
		w = f.do(t, http.MethodPost, "/sessions/s1/turns", fmt.Sprintf(`{"input":%q}`, input))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	reply = decodeReply(t, w)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, domain.InputConfirm, reply.Prompt.InputType)
	assert.Contains(t, reply.Prompt.Text, "**500**")

	w = f.do(t, http.MethodPost, "/sessions/s1/turns", `{"input":"yes"}`)
	require.Equal(t, http.StatusOK, w.Code)
	reply = decodeReply(t, w)
	assert.Equal(t, domain.StatusCompleted, reply.Status)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, "Berlin", reply.Booking.Destination)

	w = f.do(t, http.MethodGet, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, f.recorder.Named(domain.EventBookingAccepted), 1)
}

func TestServer_StartWithoutBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "generated", decodeReply(t, w).SessionID)
}

func TestServer_GetAndListSessions(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/sessions", `{"session_id":"b"}`)
	f.do(t, http.MethodPost, "/sessions", `{"session_id":"a"}`)

	w := f.do(t, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list api.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"a", "b"}, list.Sessions)

	w = f.do(t, http.MethodGet, "/sessions/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state domain.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, domain.StepCollectOrigin, state.Step)
	assert.Equal(t, domain.StatusWaiting, state.Status)
}

func TestServer_EmptyList(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}

func TestServer_Cancel(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	w := f.do(t, http.MethodDelete, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusCancelled, decodeReply(t, w).Status)

	w = f.do(t, http.MethodDelete, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown session", http.MethodPost, "/sessions/nope/turns", `{"input":"paris"}`, http.StatusNotFound},
		{"malformed turn", http.MethodPost, "/sessions/s1/turns", `{`, http.StatusBadRequest},
		{"malformed start", http.MethodPost, "/sessions", `[1]`, http.StatusBadRequest},
		{"oversized input", http.MethodPost, "/sessions/s1/turns", fmt.Sprintf(`{"input":%q}`, strings.Repeat("a", runner.DefaultMaxInputSize+1)), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, api.StatusFor(fmt.Errorf("load: %w", domain.ErrSessionNotFound)))
	assert.Equal(t, http.StatusConflict, api.StatusFor(domain.ErrFlowTerminated))
	assert.Equal(t, http.StatusServiceUnavailable, api.StatusFor(fmt.Errorf("%w: %w", domain.ErrCancellationRequested, context.Canceled)))
	assert.Equal(t, http.StatusBadRequest, api.StatusFor(runner.ErrInvalidUTF8))
	assert.Equal(t, http.StatusInternalServerError, api.StatusFor(fmt.Errorf("boom")))
}

func TestServer_HealthInfoMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"tripflow-http","version":"1.2.3"}`, w.Body.String())

	f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
	w = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tripflow_step_visits_total{step="collect_origin"} 1`)
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodOptions, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/s1/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	// The ping is written after the subscription is registered.
	readUntil("event: ping")

	post, err := http.Post(srv.URL+"/sessions/s1/turns", "application/json", strings.NewReader(`{"input":"paris"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	readUntil("event: reply")
	data := strings.TrimPrefix(readUntil("data: "), "data: ")

	var reply domain.Reply
	require.NoError(t, json.Unmarshal([]byte(data), &reply))
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, runtime.PromptDestination, reply.Prompt.Text)
}

func TestServer_StartIsStreamed(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/s2/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return strings.TrimPrefix(lines.Text(), prefix)
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}
	next("event: ping")

	post, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(`{"session_id":"s2"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	next("event: reply")
	var reply domain.Reply
	require.NoError(t, json.Unmarshal([]byte(next("data: ")), &reply))
	assert.Equal(t, "s2", reply.SessionID)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, runtime.PromptOrigin, reply.Prompt.Text)
}

func TestServer_OpenAPI(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/yaml", w.Header().Get("Content-Type"))

	spec, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, spec.Validate(context.Background()))

	embedded, err := api.GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, embedded.Info.Title, spec.Info.Title)

	// Every documented operation is routed.
	for path, item := range spec.Paths.Map() {
		for method := range item.Operations() {
			if method == http.MethodGet && strings.HasSuffix(path, "/events") {
				continue
			}
			f.do(t, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
			target := strings.ReplaceAll(path, "{id}", "s1")
			w := f.do(t, method, target, `{"input":"help"}`)
			assert.NotContains(t, []int{http.StatusNotFound, http.StatusMethodNotAllowed}, w.Code, "%s %s", method, path)
		}
	}

	w = f.do(t, http.MethodGet, "/swagger", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/openapi.yaml")
}

func TestStreamManager_SubscribeBroadcast(t *testing.T) {
	sm := api.NewStreamManager(logging.NewNop())

	ch, unsubscribe := sm.Subscribe("s1")
	assert.Equal(t, 1, sm.Subscribers("s1"))

	sm.Broadcast("s1", "hello")
	sm.Broadcast("other", "ignored")
	assert.Equal(t, "hello", <-ch)

	unsubscribe()
	unsubscribe()
	assert.Zero(t, sm.Subscribers("s1"))
	_, open := <-ch
	assert.False(t, open)
}
