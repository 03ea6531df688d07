package observability

import (
	"context"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsReporter counts booking outcomes and step activity.
type MetricsReporter struct {
	outcomes    *prometheus.CounterVec
	stepVisits  *prometheus.CounterVec
	delegations *prometheus.CounterVec
	terminated  *prometheus.CounterVec
}

// NewMetricsReporter creates the collectors and registers them with reg.
func NewMetricsReporter(reg prometheus.Registerer) (*MetricsReporter, error) {
	m := &MetricsReporter{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripflow_booking_outcomes_total",
				Help: "Total number of reported booking outcome events",
			},
			[]string{"event", "severity"},
		),
		stepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripflow_step_visits_total",
				Help: "Total number of waterfall step entries",
			},
			[]string{"step"},
		),
		delegations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripflow_delegations_total",
				Help: "Total number of sub-flow delegations",
			},
			[]string{"sub_flow"},
		),
		terminated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripflow_flows_terminated_total",
				Help: "Total number of flows reaching a terminal state",
			},
			[]string{"status"},
		),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.stepVisits, m.delegations, m.terminated} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Track implements ports.Reporter.
func (m *MetricsReporter) Track(_ context.Context, event domain.Event) error {
	m.outcomes.WithLabelValues(event.Name, string(event.Severity)).Inc()
	return nil
}

// Hooks returns lifecycle hooks that feed the step counters.
func (m *MetricsReporter) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.stepVisits.WithLabelValues(string(e.Step)).Inc()
		},
		OnDelegate: func(_ context.Context, e *domain.StepEvent) {
			m.delegations.WithLabelValues(string(e.SubFlow)).Inc()
		},
		OnTerminate: func(_ context.Context, s *domain.State) {
			m.terminated.WithLabelValues(string(s.Status)).Inc()
		},
	}
}
