package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/ports"
)

// Nop discards every event.
type Nop struct{}

// Track implements ports.Reporter.
func (Nop) Track(context.Context, domain.Event) error { return nil }

// Multi fans an event out to several reporters.
// Every reporter is called even if an earlier one fails.
type Multi []ports.Reporter

// Track implements ports.Reporter.
func (m Multi) Track(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Track(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SafeReporter swallows failures of the wrapped reporter, including panics.
type SafeReporter struct {
	next   ports.Reporter
	logger *slog.Logger
}

// Safe wraps a reporter so it can never fail the caller.
func Safe(next ports.Reporter, logger *slog.Logger) *SafeReporter {
	if next == nil {
		next = Nop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SafeReporter{next: next, logger: logger}
}

// Track forwards the event and always returns nil.
func (s *SafeReporter) Track(ctx context.Context, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reporter panic: %v", r)
		}
		if err != nil {
			s.logger.Warn("Failed to report event",
				"event", event.Name,
				"session_id", event.SessionID,
				"err", err,
			)
		}
		err = nil
	}()
	return s.next.Track(ctx, event)
}

// LogReporter writes events as structured log records.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a reporter backed by slog.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Track implements ports.Reporter.
func (l *LogReporter) Track(ctx context.Context, event domain.Event) error {
	attrs := make([]any, 0, 2+2*len(event.Properties))
	attrs = append(attrs, "session_id", event.SessionID)
	for k, v := range event.Properties {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelInfo
	if event.Severity == domain.SeverityWarning {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, event.Name, attrs...)
	return nil
}
