package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/tripflow"
	"github.com/aretw0/tripflow/internal/config"
	"github.com/aretw0/tripflow/internal/dto"
	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/internal/presentation/tui"
	httpAdapter "github.com/aretw0/tripflow/pkg/adapters/http"
	"github.com/aretw0/tripflow/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatCommand holds the flags of the chat command.
type ChatCommand struct {
	SessionID string
	Prefill   []string // key=value pairs
	Quiet     bool     // no banner
}

// RunChat runs an interactive booking on the terminal.
func RunChat(ctx context.Context, cfg config.Config, cmd ChatCommand, in io.Reader, out *os.File) error {
	logger, err := createLogger(cfg.LogLevel, true)
	if err != nil {
		return err
	}

	pairs, err := dto.ParsePairs(cmd.Prefill)
	if err != nil {
		return err
	}
	prefill, err := dto.DecodePrefill(pairs)
	if err != nil {
		return err
	}

	stack, err := createEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if !cmd.Quiet && tui.IsTerminal(out) {
		tui.PrintBanner(out)
	}
	return Chat(ctx, stack.Engine, ChatOptions{
		SessionID: cmd.SessionID,
		Prefill:   prefill,
		In:        in,
		Out:       out,
		Render:    tui.NewRenderer(out),
	})
}

// RunServe serves the HTTP API on cfg.HTTP.Addr until ctx is cancelled.
func RunServe(ctx context.Context, cfg config.Config) error {
	logger, err := createLogger(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	stack, err := createEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpAdapter.NewHandler(stack.Engine,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithVersion(tripflow.Version),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(stack.Registry, promhttp.HandlerOpts{})),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting tripflow server", "addr", srv.Addr, "store", cfg.Store.Driver)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
			return srv.Close()
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}

// RunMCP serves the MCP tools over stdio or SSE.
func RunMCP(ctx context.Context, cfg config.Config, transport, addr string) error {
	logger, err := createLogger(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	stack, err := createEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := mcp.NewServer(stack.Engine, tripflow.Version, mcp.WithLogger(logger))
	switch transport {
	case "stdio":
		logger.Info("Starting tripflow MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		err := srv.ServeSSE(ctx, addr, "http://"+listenHost(addr))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
}

// createLogger builds the logger for a command. Interactive sessions stay
// quiet unless debug logging was asked for, so logs don't interleave with the chat.
func createLogger(level string, interactive bool) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if interactive && lvl > slog.LevelDebug {
		return logging.NewNop(), nil
	}
	return logging.New(lvl), nil
}

func listenHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
