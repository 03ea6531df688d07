package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tripflow"
	"github.com/aretw0/tripflow/internal/config"
	"github.com/aretw0/tripflow/pkg/adapters/file"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/adapters/redis"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/observability"
	"github.com/aretw0/tripflow/pkg/persistence/middleware"
	"github.com/aretw0/tripflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Stack is an engine with the infrastructure it was built on.
type Stack struct {
	Engine   *tripflow.Engine
	Registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
	close    func() error
}

// Close flushes the tracer and releases the store connection, if any.
func (s *Stack) Close() error {
	var errs []error
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(context.Background()))
	}
	if s.close != nil {
		errs = append(errs, s.close())
	}
	return errors.Join(errs...)
}

// createEngine initializes the engine from the configuration.
// Outcome events go to the log, to Prometheus and to the active trace span,
// after masking the configured property keys.
func createEngine(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetricsReporter(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	reporter, err := observability.NewMaskingReporter(observability.Multi{
		observability.NewLogReporter(logger),
		metrics,
		observability.TraceReporter{},
	}, cfg.Telemetry.Mask)
	if err != nil {
		return nil, err
	}

	stack := &Stack{Registry: reg}
	opts := []tripflow.Option{
		tripflow.WithLogger(logger),
		tripflow.WithMaxInputSize(cfg.Input.MaxSize),
		tripflow.WithReporter(reporter),
		tripflow.WithLifecycleHooks(chainHooks(metrics.Hooks(), createDebugHooks(logger))),
	}
	if cfg.Telemetry.Trace {
		stack.tracer = observability.NewTracerProvider(logger)
		opts = append(opts, tripflow.WithTracerProvider(stack.tracer))
	}

	var store ports.StateStore
	switch cfg.Store.Driver {
	case config.DriverRedis:
		r := cfg.Store.Redis
		rs := redis.New(r.Addr, r.Password, r.DB, redis.WithPrefix(r.Prefix), redis.WithTTL(r.TTL))
		if err := rs.Client().Ping(context.Background()).Err(); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", r.Addr, err)
		}
		if r.Lock {
			opts = append(opts, tripflow.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix())))
		}
		store = rs
		stack.close = rs.Close
		logger.Debug("Using redis store", "addr", r.Addr, "prefix", rs.Prefix(), "lock", r.Lock)
	case config.DriverFile:
		store = file.New(cfg.Store.File.Dir)
		logger.Debug("Using file store", "dir", cfg.Store.File.Dir)
	default:
		store = memory.NewStore()
	}

	if enc := cfg.Store.Encryption; enc.Enabled() {
		keys, err := middleware.DecodeKeys(enc.Key, enc.FallbackKeys...)
		if err != nil {
			_ = stack.Close()
			return nil, err
		}
		seal, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			_ = stack.Close()
			return nil, err
		}
		store = seal(store)
		logger.Debug("Encrypting sessions at rest", "fallback_keys", len(keys.FallbackKeys))
	}
	opts = append(opts, tripflow.WithStore(store))

	stack.Engine = tripflow.New(opts...)
	return stack, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Enter Step", "session_id", e.SessionID, "step", e.Step)
		},
		OnDelegate: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Delegate", "session_id", e.SessionID, "step", e.Step, "sub_flow", e.SubFlow)
		},
		OnTerminate: func(ctx context.Context, s *domain.State) {
			logger.Debug("Terminate", "session_id", s.SessionID, "status", s.Status)
		},
	}
}

// chainHooks calls every non-nil hook of a, then of b.
func chainHooks(a, b domain.LifecycleHooks) domain.LifecycleHooks {
	step := func(x, y func(context.Context, *domain.StepEvent)) func(context.Context, *domain.StepEvent) {
		return func(ctx context.Context, e *domain.StepEvent) {
			if x != nil {
				x(ctx, e)
			}
			if y != nil {
				y(ctx, e)
			}
		}
	}
	return domain.LifecycleHooks{
		OnStepEnter: step(a.OnStepEnter, b.OnStepEnter),
		OnDelegate:  step(a.OnDelegate, b.OnDelegate),
		OnTerminate: func(ctx context.Context, s *domain.State) {
			if a.OnTerminate != nil {
				a.OnTerminate(ctx, s)
			}
			if b.OnTerminate != nil {
				b.OnTerminate(ctx, s)
			}
		},
	}
}
