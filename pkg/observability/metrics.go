// Package observability exposes workflow execution metrics. The collectors
// plug into the orchestrator through lifecycle hooks, so the workflow
// package itself stays free of any metrics dependency.
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/probaah/probaah/pkg/domain"
)

// Metrics holds the workflow collectors, registered on the given registry.
type Metrics struct {
	StepsTotal      *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	ToolInvocations *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	RunsTotal       *prometheus.CounterVec

	mu      sync.Mutex
	started map[string]time.Time // run_id/step_id -> start
}

// New creates and registers the collectors. Pass prometheus.DefaultRegisterer
// for the process-wide registry or a private one for tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "probaah",
			Name:      "workflow_steps_total",
			Help:      "Workflow steps by kind and terminal status.",
		}, []string{"kind", "status"}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "probaah",
			Name:      "workflow_step_duration_seconds",
			Help:      "Wall time of workflow steps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"kind"}),
		ToolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "probaah",
			Name:      "tool_invocations_total",
			Help:      "External tool invocations by adapter and outcome.",
		}, []string{"adapter", "outcome"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "probaah",
			Name:      "tool_invocation_duration_seconds",
			Help:      "Wall time of external tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 7),
		}, []string{"adapter"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "probaah",
			Name:      "workflow_runs_total",
			Help:      "Completed workflow runs by result.",
		}, []string{"result"}),
		started: make(map[string]time.Time),
	}
}

// Hooks returns lifecycle hooks feeding these collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart:  m.onStepStart,
		OnStepEnd:    m.onStepEnd,
		OnToolInvoke: func(context.Context, *domain.ToolEvent) {},
		OnToolReturn: m.onToolReturn,
	}
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(report *domain.WorkflowReport) {
	result := "success"
	if !report.Success {
		result = "failure"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) onStepStart(_ context.Context, e *domain.StepEvent) {
	m.mu.Lock()
	m.started[e.RunID+"/"+e.StepID] = e.Timestamp
	m.mu.Unlock()
}

func (m *Metrics) onStepEnd(_ context.Context, e *domain.StepEvent) {
	if !e.Status.Terminal() {
		return
	}
	m.StepsTotal.WithLabelValues(e.Kind, string(e.Status)).Inc()

	key := e.RunID + "/" + e.StepID
	m.mu.Lock()
	start, ok := m.started[key]
	delete(m.started, key)
	m.mu.Unlock()
	if ok {
		m.StepDuration.WithLabelValues(e.Kind).Observe(e.Timestamp.Sub(start).Seconds())
	}
}

func (m *Metrics) onToolReturn(_ context.Context, e *domain.ToolEvent) {
	outcome := "ok"
	if e.IsError {
		outcome = "error"
	}
	m.ToolInvocations.WithLabelValues(e.Adapter, outcome).Inc()
	m.ToolDuration.WithLabelValues(e.Adapter).Observe(e.Elapsed.Seconds())
}
