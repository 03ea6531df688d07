package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tripflow/internal/dto"
	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing suspended sessions.
const SessionsURI = "tripflow://sessions"

// Dispatcher is the turn API exposed as MCP tools.
type Dispatcher interface {
	Start(ctx context.Context, sessionID string, prefill domain.BookingSession) (domain.Reply, error)
	Turn(ctx context.Context, sessionID, input string) (domain.Reply, error)
	Cancel(ctx context.Context, sessionID string) (domain.Reply, error)
	State(ctx context.Context, sessionID string) (*domain.State, error)
	List(ctx context.Context) ([]string, error)
}

// Server exposes the booking dispatcher as an MCP Server.
type Server struct {
	dispatcher Dispatcher
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(d Dispatcher, version string, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		mcpServer:  server.NewMCPServer("tripflow-mcp", version),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_booking",
		mcp.WithDescription("Start a trip booking conversation. Returns the first question to ask the user."),
		mcp.WithString("session_id", mcp.Description("Session ID (generated when omitted)")),
		mcp.WithString("prefill", mcp.Description(`JSON object of details already known, e.g. {"origin_city":"Paris","budget":"500"}`)),
		mcp.WithOutputSchema[domain.Reply](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	turnTool := mcp.NewTool("booking_turn",
		mcp.WithDescription("Send the user's answer to the booking conversation. 'help' repeats the question, 'cancel' abandons it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_booking")),
		mcp.WithString("input", mcp.Required(), mcp.Description("User input string")),
		mcp.WithOutputSchema[domain.Reply](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleTurn))

	cancelTool := mcp.NewTool("cancel_booking",
		mcp.WithDescription("Abandon a booking conversation and discard what was collected."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.Reply](),
	)
	s.mcpServer.AddTool(cancelTool, mcp.NewStructuredToolHandler(s.handleCancel))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Reply, error) {
	sessionID, _ := args["session_id"].(string)

	raw := map[string]any{}
	if prefill, ok := args["prefill"].(string); ok && prefill != "" {
		if err := json.Unmarshal([]byte(prefill), &raw); err != nil {
			return domain.Reply{}, fmt.Errorf("invalid prefill: %w", err)
		}
	}
	booking, err := dto.DecodePrefill(raw)
	if err != nil {
		return domain.Reply{}, err
	}

	reply, err := s.dispatcher.Start(ctx, sessionID, booking)
	if err != nil {
		s.logger.Error("MCP start_booking failed", "err", err)
		return domain.Reply{}, fmt.Errorf("start failed: %w", err)
	}
	return reply, nil
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Reply, error) {
	sessionID, _ := args["session_id"].(string)
	input, _ := args["input"].(string)
	if sessionID == "" {
		return domain.Reply{}, errors.New("session_id is required")
	}

	reply, err := s.dispatcher.Turn(ctx, sessionID, input)
	if err != nil {
		s.logger.Warn("MCP booking_turn rejected", "session_id", sessionID, "err", err)
		return domain.Reply{}, fmt.Errorf("turn failed: %w", err)
	}
	return reply, nil
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Reply, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return domain.Reply{}, errors.New("session_id is required")
	}

	reply, err := s.dispatcher.Cancel(ctx, sessionID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("cancel failed: %w", err)
	}
	return reply, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Suspended booking sessions",
		mcp.WithMIMEType("application/json"),
	), s.readSessions)
}

func (s *Server) readSessions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.dispatcher.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
