package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/observability"
	"github.com/aretw0/tripflow/pkg/ports"
)

// Sequencer runs the booking waterfall one turn at a time.
// It holds no per-session data and is safe for concurrent use.
type Sequencer struct {
	subflows map[domain.SubFlowID]ports.SubFlow
	reporter ports.Reporter
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Sequencer.
type Option func(*Sequencer)

// WithReporter sets the outcome reporter. It is always wrapped with observability.Safe.
func WithReporter(r ports.Reporter) Option {
	return func(s *Sequencer) {
		s.reporter = r
	}
}

// WithLogger configures a logger for the Sequencer.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers step observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sequencer) {
		s.hooks = hooks
	}
}

// WithSubFlow registers (or replaces) the sub-flow used for id.
func WithSubFlow(id domain.SubFlowID, flow ports.SubFlow) Option {
	return func(s *Sequencer) {
		s.subflows[id] = flow
	}
}

// WithDateInterpreter replaces the interpreter of both date sub-flows.
func WithDateInterpreter(interpreter DateInterpreter) Option {
	return func(s *Sequencer) {
		s.subflows[domain.SubFlowStartDate] = NewDateResolver(domain.SubFlowStartDate, interpreter)
		s.subflows[domain.SubFlowEndDate] = NewDateResolver(domain.SubFlowEndDate, interpreter)
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		s.now = now
	}
}

// NewSequencer creates a sequencer with the built-in date resolvers.
func NewSequencer(opts ...Option) *Sequencer {
	s := &Sequencer{
		subflows: map[domain.SubFlowID]ports.SubFlow{
			domain.SubFlowStartDate: NewDateResolver(domain.SubFlowStartDate, nil),
			domain.SubFlowEndDate:   NewDateResolver(domain.SubFlowEndDate, nil),
		},
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reporter = observability.Safe(s.reporter, s.logger)
	return s
}

// turn carries what a single resumption may touch.
type turn struct {
	state *domain.State
	reply *domain.Reply
}

// Start creates a flow for the (possibly pre-filled) booking and runs it
// until the first suspension.
func (s *Sequencer) Start(ctx context.Context, sessionID string, booking domain.BookingSession) (*domain.State, domain.Reply, error) {
	state := domain.NewState(sessionID, booking)
	state.CreatedAt = s.now().UTC()
	return s.run(ctx, state, domain.Waterfall[0], "")
}

// Resume feeds the input of a new turn into the suspended step (or the
// active sub-flow) and runs until the next suspension or a terminal state.
// The given state is never modified.
func (s *Sequencer) Resume(ctx context.Context, state *domain.State, input string) (*domain.State, domain.Reply, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, domain.Reply{}, err
	}
	if state.Status.Terminal() {
		return nil, domain.Reply{}, fmt.Errorf("%w: session %s is %s", domain.ErrFlowTerminated, state.SessionID, state.Status)
	}

	next := state.Clone()
	next.Status = domain.StatusActive

	if frame, ok := next.Top(); ok {
		flow, ok := s.subflows[frame.SubFlow]
		if !ok {
			return nil, domain.Reply{}, fmt.Errorf("%w: %s", domain.ErrUnknownSubFlow, frame.SubFlow)
		}
		frame.Attempts++
		res := flow.Continue(ctx, *frame, input)
		return s.afterSubFlow(ctx, next, res)
	}

	prior := input
	if next.Step == domain.StepConfirm {
		yes, ok := ParseConfirmation(input)
		if !ok {
			reply := s.newReply(next)
			reply.Say(domain.MessageSystem, PromptConfirmRetry)
			pending := domain.Confirm(Summary(next.Booking))
			if next.Pending != nil {
				pending = *next.Pending
			}
			return s.suspend(next, &reply, next.Step, pending)
		}
		prior = fmt.Sprintf("%t", yes)
	}

	step, ok := next.Step.Next()
	if !ok {
		return nil, domain.Reply{}, fmt.Errorf("%w: cannot resume after %q", domain.ErrUnknownStep, next.Step)
	}
	return s.run(ctx, next, step, prior)
}

// Cancel unwinds the flow to the Cancelled state. No outcome event is reported
// and the collected data is discarded.
func (s *Sequencer) Cancel(ctx context.Context, state *domain.State) (*domain.State, domain.Reply, error) {
	if state.Status.Terminal() {
		return nil, domain.Reply{}, fmt.Errorf("%w: session %s is %s", domain.ErrFlowTerminated, state.SessionID, state.Status)
	}
	next := state.Clone()
	next.Booking = domain.BookingSession{}
	next.Stack = nil
	next.Pending = nil

	reply := s.newReply(next)
	s.terminate(ctx, next, &reply, domain.StatusCancelled)
	s.logger.Debug("flow cancelled", "session_id", next.SessionID, "step", next.Step)
	return next, reply, nil
}

// Render returns the reply for the prompt the flow is waiting on, without advancing.
func (s *Sequencer) Render(state *domain.State) domain.Reply {
	reply := s.newReply(state)
	reply.Prompt = state.Pending
	if state.Status == domain.StatusCompleted {
		b := state.Booking
		reply.Booking = &b
	}
	return reply
}

func (s *Sequencer) run(ctx context.Context, state *domain.State, step domain.Step, prior string) (*domain.State, domain.Reply, error) {
	reply := s.newReply(state)
	t := &turn{state: state, reply: &reply}

	for {
		if err := checkCancel(ctx); err != nil {
			return nil, domain.Reply{}, err
		}

		s.enter(ctx, state, step)
		res, err := s.exec(ctx, t, step, prior)
		if err != nil {
			return nil, domain.Reply{}, err
		}

		switch res.Kind {
		case domain.ResultAdvance:
			nextStep, ok := step.Next()
			if !ok {
				return nil, domain.Reply{}, fmt.Errorf("%w: no step after %q", domain.ErrUnknownStep, step)
			}
			step, prior = nextStep, res.Value

		case domain.ResultPrompt:
			return s.suspend(state, &reply, step, res)

		case domain.ResultDelegate:
			flow, ok := s.subflows[res.SubFlow]
			if !ok {
				return nil, domain.Reply{}, fmt.Errorf("%w: %s", domain.ErrUnknownSubFlow, res.SubFlow)
			}
			frame := domain.Frame{SubFlow: res.SubFlow, ReturnTo: step, Seed: res.Seed}
			state.Push(frame)
			s.delegate(ctx, state, step, res.SubFlow)

			sub := flow.Begin(ctx, frame)
			if sub.Kind == domain.ResultPrompt {
				return s.suspend(state, &reply, step, sub)
			}
			if sub.Kind != domain.ResultAdvance {
				return nil, domain.Reply{}, fmt.Errorf("sub-flow %s returned %q on begin", res.SubFlow, sub.Kind)
			}
			state.Pop()
			nextStep, ok := step.Next()
			if !ok {
				return nil, domain.Reply{}, fmt.Errorf("%w: no step after %q", domain.ErrUnknownStep, step)
			}
			step, prior = nextStep, sub.Value

		case domain.ResultComplete:
			state.Booking = *res.Booking
			b := state.Booking
			reply.Booking = &b
			s.terminate(ctx, state, &reply, domain.StatusCompleted)
			return state, reply, nil

		case domain.ResultCancelled:
			s.terminate(ctx, state, &reply, domain.StatusCancelled)
			return state, reply, nil

		default:
			return nil, domain.Reply{}, fmt.Errorf("step %q returned unknown result %q", step, res.Kind)
		}
	}
}

// afterSubFlow handles a sub-flow answer received during Resume.
func (s *Sequencer) afterSubFlow(ctx context.Context, state *domain.State, res domain.StepResult) (*domain.State, domain.Reply, error) {
	switch res.Kind {
	case domain.ResultPrompt:
		reply := s.newReply(state)
		return s.suspend(state, &reply, state.Step, res)
	case domain.ResultAdvance:
		frame, _ := state.Pop()
		s.logger.Debug("sub-flow resolved", "session_id", state.SessionID, "sub_flow", frame.SubFlow, "attempts", frame.Attempts)
		step, ok := frame.ReturnTo.Next()
		if !ok {
			return nil, domain.Reply{}, fmt.Errorf("%w: no step after %q", domain.ErrUnknownStep, frame.ReturnTo)
		}
		return s.run(ctx, state, step, res.Value)
	}
	return nil, domain.Reply{}, fmt.Errorf("sub-flow returned %q on continue", res.Kind)
}

func (s *Sequencer) suspend(state *domain.State, reply *domain.Reply, step domain.Step, prompt domain.StepResult) (*domain.State, domain.Reply, error) {
	state.Step = step
	state.Status = domain.StatusWaiting
	state.Pending = &prompt
	state.UpdatedAt = s.now().UTC()

	reply.Status = state.Status
	reply.Prompt = state.Pending
	return state, *reply, nil
}

func (s *Sequencer) terminate(ctx context.Context, state *domain.State, reply *domain.Reply, status domain.ExecutionStatus) {
	state.Status = status
	state.Pending = nil
	state.UpdatedAt = s.now().UTC()
	reply.Status = status

	if s.hooks.OnTerminate != nil {
		defer s.recoverHook("OnTerminate", state.SessionID)
		s.hooks.OnTerminate(ctx, state)
	}
}

func (s *Sequencer) enter(ctx context.Context, state *domain.State, step domain.Step) {
	state.Step = step
	state.History = append(state.History, step)
	s.logger.Debug("step enter", "session_id", state.SessionID, "step", step)

	if s.hooks.OnStepEnter != nil {
		defer s.recoverHook("OnStepEnter", state.SessionID)
		s.hooks.OnStepEnter(ctx, &domain.StepEvent{
			Timestamp: s.now(),
			SessionID: state.SessionID,
			Step:      step,
		})
	}
}

func (s *Sequencer) delegate(ctx context.Context, state *domain.State, step domain.Step, id domain.SubFlowID) {
	s.logger.Debug("delegating", "session_id", state.SessionID, "step", step, "sub_flow", id)

	if s.hooks.OnDelegate != nil {
		defer s.recoverHook("OnDelegate", state.SessionID)
		s.hooks.OnDelegate(ctx, &domain.StepEvent{
			Timestamp: s.now(),
			SessionID: state.SessionID,
			Step:      step,
			SubFlow:   id,
		})
	}
}

// recoverHook keeps a panicking lifecycle hook from aborting the turn.
func (s *Sequencer) recoverHook(hook, sessionID string) {
	if r := recover(); r != nil {
		s.logger.Warn("Lifecycle hook panicked", "hook", hook, "session_id", sessionID, "panic", r)
	}
}

func (s *Sequencer) track(ctx context.Context, state *domain.State, name string, severity domain.Severity) {
	_ = s.reporter.Track(ctx, domain.Event{
		Timestamp:  s.now(),
		Name:       name,
		Severity:   severity,
		SessionID:  state.SessionID,
		Properties: state.Booking.Properties(),
	})
}

func (s *Sequencer) newReply(state *domain.State) domain.Reply {
	return domain.Reply{SessionID: state.SessionID, Status: state.Status}
}

func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancellationRequested, err)
	}
	return nil
}
