package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of dispatcher spans.
const TracerName = "github.com/aretw0/tripflow"

const (
	// MessageHelp is shown when the user asks for help mid-flow.
	MessageHelp = "Show help here"
	// MessageCancelling is shown when the user abandons the flow.
	MessageCancelling = "Cancelling"
)

// Dispatcher routes user turns to the booking flow of a session.
// It persists suspended flows through the session manager and forgets
// them once they reach a terminal state.
type Dispatcher struct {
	sessions  *session.Manager
	sequencer *runtime.Sequencer
	logger    *slog.Logger
	newID     func() string
	maxInput  int
	tracer    trace.Tracer
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithIDGenerator overrides how session ids are generated when the host omits one.
func WithIDGenerator(fn func() string) DispatcherOption {
	return func(d *Dispatcher) {
		d.newID = fn
	}
}

// WithMaxInputSize sets the turn input size limit in bytes.
func WithMaxInputSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxInput = size
	}
}

// WithTracerProvider sets where turn spans are recorded (default: the global provider).
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(TracerName)
		}
	}
}

// NewDispatcher creates a dispatcher over the given session manager and sequencer.
func NewDispatcher(sessions *session.Manager, sequencer *runtime.Sequencer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sessions:  sessions,
		sequencer: sequencer,
		logger:    logging.NewNop(),
		newID:     uuid.NewString,
		maxInput:  DefaultMaxInputSize,
		tracer:    otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// startSpan opens the span that outcome events of this call are recorded on.
func (d *Dispatcher) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("session_id", sessionID)))
}

func endSpan(span trace.Span, reply domain.Reply, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if reply.Status != "" {
		span.SetAttributes(attribute.String("status", string(reply.Status)))
	}
	span.End()
}

// Start begins a booking flow for sessionID, replacing any flow already
// stored under that id. An empty sessionID gets a generated one.
func (d *Dispatcher) Start(ctx context.Context, sessionID string, prefill domain.BookingSession) (reply domain.Reply, err error) {
	if sessionID == "" {
		sessionID = d.newID()
	}
	ctx, span := d.startSpan(ctx, "tripflow.start", sessionID)
	defer func() { endSpan(span, reply, err) }()

	state, reply, err := d.sequencer.Start(ctx, sessionID, prefill)
	if err != nil {
		return domain.Reply{}, err
	}
	if state.Status.Terminal() {
		return reply, nil
	}
	if err := d.sessions.Save(ctx, sessionID, state); err != nil {
		return domain.Reply{}, fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}

	d.logger.Info("flow started", "session_id", sessionID, "step", state.Step)
	return reply, nil
}

// Turn feeds one user input into the session's flow.
//
// "help" and "?" repeat the pending prompt, "cancel" and "quit" abandon the
// flow. Anything else is handed to the sequencer. A cancelled context
// discards the session and returns an error wrapping
// domain.ErrCancellationRequested.
func (d *Dispatcher) Turn(ctx context.Context, sessionID, input string) (reply domain.Reply, err error) {
	ctx, span := d.startSpan(ctx, "tripflow.turn", sessionID)
	defer func() { endSpan(span, reply, err) }()

	clean, err := SanitizeInputLimit(input, d.maxInput)
	if err != nil {
		return domain.Reply{}, err
	}
	if err := ctx.Err(); err != nil {
		d.discard(sessionID)
		return domain.Reply{}, fmt.Errorf("%w: %w", domain.ErrCancellationRequested, err)
	}

	err = d.sessions.Update(ctx, sessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		switch interrupt(clean) {
		case interruptHelp:
			reply = d.sequencer.Render(state)
			reply.Messages = append([]domain.Message{{Type: domain.MessageSystem, Text: MessageHelp}}, reply.Messages...)
			return state, nil
		case interruptCancel:
			var err error
			reply, err = d.cancel(ctx, state)
			return nil, err
		}

		next, r, err := d.sequencer.Resume(ctx, state, clean)
		if err != nil {
			return nil, err
		}
		reply = r
		if next.Status.Terminal() {
			d.logger.Info("flow finished", "session_id", sessionID, "status", next.Status)
			return nil, nil
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancellationRequested) {
			d.discard(sessionID)
		}
		return domain.Reply{}, err
	}
	return reply, nil
}

// Cancel abandons the session's flow and deletes it.
func (d *Dispatcher) Cancel(ctx context.Context, sessionID string) (reply domain.Reply, err error) {
	ctx, span := d.startSpan(ctx, "tripflow.cancel", sessionID)
	defer func() { endSpan(span, reply, err) }()

	err = d.sessions.Update(ctx, sessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		var err error
		reply, err = d.cancel(ctx, state)
		return nil, err
	})
	return reply, err
}

// State returns the stored state of a session.
func (d *Dispatcher) State(ctx context.Context, sessionID string) (*domain.State, error) {
	return d.sessions.Load(ctx, sessionID)
}

// List returns the ids of every suspended session.
func (d *Dispatcher) List(ctx context.Context) ([]string, error) {
	return d.sessions.List(ctx)
}

func (d *Dispatcher) cancel(ctx context.Context, state *domain.State) (domain.Reply, error) {
	_, reply, err := d.sequencer.Cancel(ctx, state)
	if err != nil {
		return domain.Reply{}, err
	}
	reply.Messages = append([]domain.Message{{Type: domain.MessageSystem, Text: MessageCancelling}}, reply.Messages...)
	d.logger.Info("flow cancelled by user", "session_id", state.SessionID)
	return reply, nil
}

// discard deletes a session after its turn was cancelled.
func (d *Dispatcher) discard(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		d.logger.Warn("failed to discard cancelled session", "session_id", sessionID, "err", err)
	}
}

type interruptKind int

const (
	interruptNone interruptKind = iota
	interruptHelp
	interruptCancel
)

func interrupt(input string) interruptKind {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "help", "?":
		return interruptHelp
	case "cancel", "quit":
		return interruptCancel
	}
	return interruptNone
}
