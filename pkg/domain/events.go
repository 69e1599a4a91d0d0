package domain

import (
	"context"
	"time"
)

// StepEvent describes a step entering or leaving execution.
type StepEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	RunID     string     `json:"run_id"`
	StepID    string     `json:"step_id"`
	Kind      string     `json:"kind"`
	Status    StepStatus `json:"status"`
	Attempt   int        `json:"attempt"`
}

// ToolEvent describes an external tool invocation.
type ToolEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	StepID    string        `json:"step_id"`
	Adapter   string        `json:"adapter"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	IsError   bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// All fields are optional.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepEnd    func(context.Context, *StepEvent)
	OnToolInvoke func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}
