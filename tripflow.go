package tripflow

import (
	"log/slog"

	"github.com/aretw0/tripflow/internal/logging"
	"github.com/aretw0/tripflow/internal/runtime"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/ports"
	"github.com/aretw0/tripflow/pkg/runner"
	"github.com/aretw0/tripflow/pkg/session"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the high-level entry point for the tripflow library.
// It wires a store, the booking sequencer and the turn dispatcher together.
type Engine struct {
	*runner.Dispatcher

	store       ports.StateStore
	locker      ports.DistributedLocker
	reporter    ports.Reporter
	hooks       domain.LifecycleHooks
	interpreter runtime.DateInterpreter
	logger      *slog.Logger
	maxInput    int
	newID       func() string
	tracer      trace.TracerProvider
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where suspended flows are kept (default: in memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serialises turns of the same session across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithReporter sets the sink of booking outcome events.
func WithReporter(r ports.Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithDateInterpreter replaces the parser of free-text travel dates.
func WithDateInterpreter(interpreter runtime.DateInterpreter) Option {
	return func(e *Engine) {
		e.interpreter = interpreter
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxInputSize sets the turn input size limit in bytes.
func WithMaxInputSize(size int) Option {
	return func(e *Engine) {
		e.maxInput = size
	}
}

// WithIDGenerator overrides how session ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithTracerProvider sets where per-turn spans are recorded (default: the global provider).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp
	}
}

// New initializes a new tripflow Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		maxInput: runner.DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	seqOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	}
	if e.reporter != nil {
		seqOpts = append(seqOpts, runtime.WithReporter(e.reporter))
	}
	if e.interpreter != nil {
		seqOpts = append(seqOpts, runtime.WithDateInterpreter(e.interpreter))
	}

	mgrOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(e.locker))
	}

	dispOpts := []runner.DispatcherOption{
		runner.WithLogger(e.logger),
		runner.WithMaxInputSize(e.maxInput),
	}
	if e.newID != nil {
		dispOpts = append(dispOpts, runner.WithIDGenerator(e.newID))
	}
	if e.tracer != nil {
		dispOpts = append(dispOpts, runner.WithTracerProvider(e.tracer))
	}

	e.Dispatcher = runner.NewDispatcher(
		session.NewManager(e.store, mgrOpts...),
		runtime.NewSequencer(seqOpts...),
		dispOpts...,
	)
	return e
}

// Store returns the state store backing the engine.
func (e *Engine) Store() ports.StateStore {
	return e.store
}
