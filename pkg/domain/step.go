package domain

import "time"

// StepKind constants classify what a workflow step does.
const (
	// KindStructureOp runs the gas substitution pipeline (or another
	// in-process structure transformation).
	KindStructureOp = "structure-op"
	// KindToolInvocation runs a single external tool through its adapter.
	KindToolInvocation = "tool-invocation"
	// KindValidation inspects a structure for geometric plausibility.
	KindValidation = "validation"
	// KindAnalysis hands a trajectory to the external analyzer.
	KindAnalysis = "analysis"
	// KindPresentation hands analysis results to the slide generator.
	KindPresentation = "presentation"
)

// StepStatus is the lifecycle state of a workflow step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	// StatusSkipped means a dependency reached a terminal failure, so the
	// step never ran. Skips propagate transitively.
	StatusSkipped StepStatus = "skipped"
)

// Terminal reports whether the status is final.
func (s StepStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// WorkflowStep is the unit of orchestrated work.
//
// Params holds the step's literal parameters as a generic map; each step
// runner decodes it into its own typed parameter struct. Inputs reference
// artifact IDs produced by earlier steps, Outputs declare the artifact IDs
// this step will produce. DependsOn lists step IDs that must reach
// StatusSucceeded before this step may run.
type WorkflowStep struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      string         `json:"kind" yaml:"kind"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Inputs    []string       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs   []string       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Retry overrides the orchestrator's default policy for this step.
	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryPolicy controls re-execution of a failed step.
// Failures classified as non-retryable (ParseError, GeometryInfeasible,
// ToolNotFound, ...) are terminal regardless of the policy.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff     time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
	MaxBackoff  time.Duration `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty" mapstructure:"max_backoff"`
}

// Delay returns the backoff before the given attempt (1-based), doubling
// each time and clamped at MaxBackoff when set.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}
