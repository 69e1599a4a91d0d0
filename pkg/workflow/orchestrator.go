// Package workflow executes step graphs. The orchestrator validates the
// dependency graph up front, runs independent steps concurrently, retries
// transient tool failures with exponential backoff, and propagates skips
// through the graph so a failed dependency never leaves a step running.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/ports"
)

// StepFunc executes one workflow step and returns its terminal result.
// Implementations must honor ctx cancellation.
type StepFunc func(ctx context.Context, rc *RunContext, step domain.WorkflowStep) domain.StepResult

// Registry maps step kinds to their runners.
type Registry map[string]StepFunc

// DefaultRetry applies to steps without an explicit policy.
var DefaultRetry = domain.RetryPolicy{MaxAttempts: 1}

// Orchestrator runs workflows.
type Orchestrator struct {
	registry    Registry
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	store       ports.ReportStore
	scratchRoot string
	concurrency int
	keepScratch bool
	cleanupWait time.Duration
	sleep       func(context.Context, time.Duration) error
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHooks installs lifecycle callbacks (metrics, tracing).
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) { o.hooks = hooks }
}

// WithStore persists completed reports.
func WithStore(store ports.ReportStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithScratchRoot sets the parent directory for per-run scratch dirs.
func WithScratchRoot(root string) Option {
	return func(o *Orchestrator) { o.scratchRoot = root }
}

// WithConcurrency bounds how many steps run at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithKeepScratch disables scratch directory cleanup.
func WithKeepScratch(keep bool) Option {
	return func(o *Orchestrator) { o.keepScratch = keep }
}

// WithCleanupDelay defers scratch removal so the user can inspect outputs.
func WithCleanupDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.cleanupWait = d }
}

// New creates an orchestrator over the given step runner registry.
func New(registry Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: 4,
		cleanupWait: 0,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the workflow and returns its report. A non-nil error is only
// returned when the graph itself is invalid (cycle, unknown dependency,
// unknown kind); in that case no step was started. Step failures are
// reported through the step results, not the error.
func (o *Orchestrator) Run(ctx context.Context, request string, steps []domain.WorkflowStep) (*domain.WorkflowReport, error) {
	p, failure := buildPlan(steps, o.registry)
	if failure != nil {
		return nil, failure
	}

	runID := uuid.NewString()
	scratch, err := o.makeScratch(runID)
	if err != nil {
		return nil, domain.NewFailure(domain.FailOrchestration, err, "check scratch directory permissions")
	}

	logger := o.logger.With("run_id", runID)
	logger.Info("workflow started", "steps", len(steps), "scratch", scratch)

	rc := NewRunContext(runID, scratch)
	started := time.Now()
	results := o.execute(ctx, logger, p, rc)

	report := &domain.WorkflowReport{
		RunID:      runID,
		Request:    request,
		Success:    true,
		StartedAt:  started,
		FinishedAt: time.Now(),
		ScratchDir: scratch,
	}
	report.Elapsed = report.FinishedAt.Sub(report.StartedAt)
	for _, id := range p.order {
		res := results[id]
		if res.Status != domain.StatusSucceeded {
			report.Success = false
		}
		report.Steps = append(report.Steps, *res)
	}

	logger.Info("workflow finished", "success", report.Success, "elapsed", report.Elapsed)

	if o.store != nil {
		if err := o.store.Save(ctx, report); err != nil {
			logger.Warn("could not persist report", "err", err)
		}
	}
	o.scheduleCleanup(logger, scratch)
	return report, nil
}

// execute drives the scheduling loop: collect ready steps, run them, repeat
// until every step is terminal.
func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, p *plan, rc *RunContext) map[string]*domain.StepResult {
	var mu sync.Mutex
	results := make(map[string]*domain.StepResult, len(p.order))

	record := func(res *domain.StepResult) {
		mu.Lock()
		results[res.StepID] = res
		mu.Unlock()
	}

	for {
		mu.Lock()
		if len(results) == len(p.order) {
			mu.Unlock()
			return results
		}
		canceled := ctx.Err() != nil

		var ready []domain.WorkflowStep
		for _, id := range p.order {
			if _, done := results[id]; done {
				continue
			}
			step := p.steps[id]

			if canceled {
				results[id] = &domain.StepResult{
					StepID:  id,
					Kind:    step.Kind,
					Status:  domain.StatusSkipped,
					Failure: domain.FailOrchestration,
					Error:   "run canceled",
				}
				continue
			}

			blocked, failedDep := false, ""
			for _, dep := range step.DependsOn {
				res, done := results[dep]
				if !done {
					blocked = true
					break
				}
				if res.Status != domain.StatusSucceeded {
					failedDep = dep
					break
				}
			}
			if failedDep != "" {
				// Skip without ever entering StatusRunning; skips cascade
				// because this result is itself non-succeeded.
				results[id] = &domain.StepResult{
					StepID: id,
					Kind:   step.Kind,
					Status: domain.StatusSkipped,
					Error:  dependencySummary(step, results),
				}
				logger.Info("step skipped", "step", id, "cause", failedDep)
				continue
			}
			if !blocked {
				ready = append(ready, step)
			}
		}
		mu.Unlock()

		if len(ready) == 0 {
			continue
		}

		sort.Slice(ready, func(i, j int) bool {
			return p.rank[ready[i].ID] < p.rank[ready[j].ID]
		})

		// Steps declaring a common output artifact run serially within
		// their group; independent groups run concurrently.
		var eg errgroup.Group
		eg.SetLimit(o.concurrency)
		for _, group := range conflictGroups(ready) {
			group := group
			eg.Go(func() error {
				for _, step := range group {
					res := o.runStep(ctx, logger, rc, step)
					record(res)
				}
				return nil
			})
		}
		_ = eg.Wait()
	}
}

// runStep executes one step with its retry policy. Only failures whose kind
// is retryable consume additional attempts.
func (o *Orchestrator) runStep(ctx context.Context, logger *slog.Logger, rc *RunContext, step domain.WorkflowStep) *domain.StepResult {
	policy := DefaultRetry
	if step.Retry != nil {
		policy = *step.Retry
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	run, ok := o.registry[step.Kind]
	if !ok {
		// buildPlan already rejected unknown kinds; this is unreachable in
		// practice but kept total.
		return &domain.StepResult{
			StepID:  step.ID,
			Kind:    step.Kind,
			Status:  domain.StatusFailed,
			Failure: domain.FailOrchestration,
			Error:   fmt.Sprintf("no runner for kind %q", step.Kind),
		}
	}

	var res domain.StepResult
	started := time.Now()
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		o.emitStepStart(ctx, rc.RunID, step, attempt)
		logger.Info("step started", "step", step.ID, "kind", step.Kind, "attempt", attempt)

		res = run(ctx, rc, step)
		res.StepID = step.ID
		res.Kind = step.Kind
		res.Attempts = attempt

		o.emitStepEnd(ctx, rc.RunID, step, attempt, res.Status)

		if res.Status == domain.StatusSucceeded {
			logger.Info("step succeeded", "step", step.ID, "elapsed", res.Elapsed)
			break
		}
		logger.Warn("step failed", "step", step.ID, "failure", res.Failure, "err", res.Error)

		if !res.Failure.Retryable() || attempt == policy.MaxAttempts {
			break
		}
		delay := policy.Delay(attempt)
		logger.Info("retrying step", "step", step.ID, "attempt", attempt+1, "backoff", delay)
		if err := o.sleep(ctx, delay); err != nil {
			res.Error = res.Error + "; retry aborted: run canceled"
			break
		}
	}

	if res.Elapsed == 0 {
		res.Elapsed = time.Since(started)
	}
	for _, a := range res.Artifacts {
		if a.ID != "" {
			rc.PutArtifact(a)
		}
	}
	return &res
}

func (o *Orchestrator) emitStepStart(ctx context.Context, runID string, step domain.WorkflowStep, attempt int) {
	if o.hooks.OnStepStart == nil {
		return
	}
	o.hooks.OnStepStart(ctx, &domain.StepEvent{
		Timestamp: time.Now(),
		RunID:     runID,
		StepID:    step.ID,
		Kind:      step.Kind,
		Status:    domain.StatusRunning,
		Attempt:   attempt,
	})
}

func (o *Orchestrator) emitStepEnd(ctx context.Context, runID string, step domain.WorkflowStep, attempt int, status domain.StepStatus) {
	if o.hooks.OnStepEnd == nil {
		return
	}
	o.hooks.OnStepEnd(ctx, &domain.StepEvent{
		Timestamp: time.Now(),
		RunID:     runID,
		StepID:    step.ID,
		Kind:      step.Kind,
		Status:    status,
		Attempt:   attempt,
	})
}

func (o *Orchestrator) makeScratch(runID string) (string, error) {
	root := o.scratchRoot
	if root == "" {
		root = filepath.Join(os.TempDir(), "probaah")
	}
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// scheduleCleanup removes the scratch directory after the configured delay.
// With no delay configured the directory is kept for the user to inspect.
func (o *Orchestrator) scheduleCleanup(logger *slog.Logger, scratch string) {
	if o.keepScratch || o.cleanupWait <= 0 {
		return
	}
	time.AfterFunc(o.cleanupWait, func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn("scratch cleanup failed", "dir", scratch, "err", err)
		}
	})
}
