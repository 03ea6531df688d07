package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/tripflow/internal/dto"
	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/runner"
	"github.com/go-chi/chi/v5"
)

//go:generate go tool oapi-codegen -package http -generate types,chi-server,spec -o api.gen.go ../../../api/openapi.yaml

// Dispatcher is the turn API served over HTTP.
type Dispatcher interface {
	Start(ctx context.Context, sessionID string, prefill domain.BookingSession) (domain.Reply, error)
	Turn(ctx context.Context, sessionID, input string) (domain.Reply, error)
	Cancel(ctx context.Context, sessionID string) (domain.Reply, error)
	State(ctx context.Context, sessionID string) (*domain.State, error)
	List(ctx context.Context) ([]string, error)
}

// Server serves booking sessions over HTTP.
type Server struct {
	Dispatcher Dispatcher
	Streams    *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	version string
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler creates the HTTP handler for the dispatcher.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	s := &Server{
		Dispatcher: d,
		logger:     logging.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()

	r.Get("/openapi.yaml", s.GetSpec)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	handler := HandlerFromMux(s, r)
	return enableCORS(handler)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Tripflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetSpec serves the embedded OpenAPI document.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	spec, err := rawSpec()
	if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to load spec"))
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(spec)
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionJSONRequestBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	var raw map[string]any
	if body.Prefill != nil {
		raw = *body.Prefill
	}
	prefill, err := dto.DecodePrefill(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var sessionID string
	if body.SessionId != nil {
		sessionID = *body.SessionId
	}

	reply, err := s.Dispatcher.Start(r.Context(), sessionID, prefill)
	if err != nil {
		s.fail(w, "StartSession", err)
		return
	}

	s.broadcast(reply.SessionID, reply)
	s.writeJSON(w, http.StatusCreated, reply)
}

// PostTurn handles POST /sessions/{id}/turns.
func (s *Server) PostTurn(w http.ResponseWriter, r *http.Request, id SessionID) {
	var body PostTurnJSONRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	reply, err := s.Dispatcher.Turn(r.Context(), id, body.Input)
	if err != nil {
		s.fail(w, "PostTurn", err)
		return
	}

	s.broadcast(id, reply)
	s.writeJSON(w, http.StatusOK, reply)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, id SessionID) {
	state, err := s.Dispatcher.State(r.Context(), id)
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// CancelSession handles DELETE /sessions/{id}.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request, id SessionID) {
	reply, err := s.Dispatcher.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, "CancelSession", err)
		return
	}
	s.broadcast(id, reply)
	s.writeJSON(w, http.StatusOK, reply)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Dispatcher.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ListResponse{Sessions: ids})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, InfoResponse{App: "tripflow-http", Version: s.version})
}

func (s *Server) broadcast(sessionID string, reply domain.Reply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("Failed to encode reply for subscribers", "session_id", sessionID, "err", err)
		return
	}
	s.Streams.Broadcast(sessionID, string(payload))
}

// fail maps dispatcher errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "status", status, "err", err)
	}
	s.writeError(w, status, err)
}

// StatusFor returns the HTTP status for a dispatcher error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFlowTerminated):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCancellationRequested):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
