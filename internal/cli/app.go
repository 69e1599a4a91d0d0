// Package cli wires the application together for the command surface:
// configuration, logging, metrics, tool adapters, report store and the
// orchestrator. Commands stay thin; everything they share lives here.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/probaah/probaah/internal/config"
	"github.com/probaah/probaah/internal/logging"
	"github.com/probaah/probaah/pkg/adapters/analysis"
	"github.com/probaah/probaah/pkg/adapters/memory"
	"github.com/probaah/probaah/pkg/adapters/packmol"
	"github.com/probaah/probaah/pkg/adapters/redis"
	"github.com/probaah/probaah/pkg/adapters/viamd"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/observability"
	"github.com/probaah/probaah/pkg/ports"
	"github.com/probaah/probaah/pkg/substitution"
	"github.com/probaah/probaah/pkg/workflow"
)

// App carries the assembled application.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Store    ports.ReportStore

	Packmol   *packmol.Adapter
	Validator *viamd.Validator
	Analyzer  *analysis.Analyzer
	Presenter *analysis.Presenter
	Pipeline  *substitution.Pipeline

	redisStore *redis.Store
}

// NewApp loads the configuration and builds the application graph.
// Input and output carry the operator dialogue for interactive validation.
func NewApp(configPath string, input io.Reader, output io.Writer) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.SlogLevel())
	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Registry: registry,

		Packmol:   packmol.New(cfg.Tools.Packmol.Executable, cfg.Tools.Packmol.Timeout.Std()),
		Validator: viamd.New(cfg.Tools.Viamd.Executable, cfg.Tools.Viamd.Timeout.Std()),
		Analyzer:  analysis.NewAnalyzer(cfg.Tools.Analyzer.Executable, cfg.Tools.Analyzer.Timeout.Std()),
		Presenter: analysis.NewPresenter(cfg.Tools.Presenter.Executable, cfg.Tools.Presenter.Timeout.Std()),
	}
	app.Validator.Input = input
	app.Validator.Output = output

	switch cfg.Store.Backend {
	case "redis":
		rs := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB,
			redis.WithTTL(cfg.Store.Redis.TTL.Std()))
		app.redisStore = rs
		app.Store = rs
	default:
		app.Store = memory.New()
	}

	app.Pipeline = &substitution.Pipeline{
		Packmol:   app.Packmol,
		Validator: app.Validator,
		Tolerance: cfg.Substitution.Tolerance,
		Logger:    logger,
		Hooks:     metrics.Hooks(),
	}
	return app, nil
}

// Close releases held connections.
func (a *App) Close() error {
	if a.redisStore != nil {
		return a.redisStore.Close()
	}
	return nil
}

// Probers lists every tool adapter for status reporting.
func (a *App) Probers() []ports.Prober {
	return []ports.Prober{a.Packmol, a.Validator, a.Analyzer, a.Presenter}
}

// StepRegistry merges the substitution runners with the analysis and
// presentation runners.
func (a *App) StepRegistry() workflow.Registry {
	registry := a.Pipeline.Registry()
	registry[domain.KindAnalysis] = a.runAnalysis
	registry[domain.KindPresentation] = a.runPresentation
	return registry
}

// Orchestrator builds a configured orchestrator over the full registry.
func (a *App) Orchestrator() *workflow.Orchestrator {
	return workflow.New(a.StepRegistry(),
		workflow.WithLogger(a.Logger),
		workflow.WithHooks(a.Metrics.Hooks()),
		workflow.WithStore(a.Store),
		workflow.WithScratchRoot(a.Config.Scratch.Root),
		workflow.WithKeepScratch(a.Config.Scratch.Keep),
		workflow.WithCleanupDelay(a.Config.Scratch.CleanupDelay.Std()),
	)
}

// RunWorkflow executes steps and records run-level metrics.
func (a *App) RunWorkflow(ctx context.Context, requestText string, steps []domain.WorkflowStep) (*domain.WorkflowReport, error) {
	report, err := a.Orchestrator().Run(ctx, requestText, steps)
	if err != nil {
		return nil, err
	}
	a.Metrics.ObserveRun(report)
	return report, nil
}

// runAnalysis resolves the trajectory to analyze: an explicit input_path
// param, or the final structure produced earlier in the same run.
func (a *App) runAnalysis(ctx context.Context, rc *workflow.RunContext, step domain.WorkflowStep) domain.StepResult {
	input, _ := step.Params["input_path"].(string)
	if input == "" {
		if art, ok := rc.Artifact("final-structure"); ok {
			input = art.Path
		}
	}
	if input == "" {
		return domain.StepResult{
			Status:  domain.StatusFailed,
			Failure: domain.FailOrchestration,
			Error:   "nothing to analyze: no input path and no structure produced in this run",
		}
	}
	res := a.Analyzer.Analyze(ctx, input, rc.ScratchDir)
	for i := range res.Artifacts {
		if res.Artifacts[i].ID == "" {
			res.Artifacts[i].ID = "analysis-report"
		}
	}
	return res
}

func (a *App) runPresentation(ctx context.Context, rc *workflow.RunContext, step domain.WorkflowStep) domain.StepResult {
	dir, _ := step.Params["analysis_dir"].(string)
	if dir == "" {
		if art, ok := rc.Artifact("analysis-report"); ok {
			dir = art.Path
		}
	}
	if dir == "" {
		return domain.StepResult{
			Status:  domain.StatusFailed,
			Failure: domain.FailOrchestration,
			Error:   "nothing to present: no analysis directory available",
		}
	}
	title, _ := step.Params["title"].(string)
	if title == "" {
		title = "Workflow results"
	}
	res := a.Presenter.Present(ctx, dir, title, rc.ScratchDir)
	for i := range res.Artifacts {
		if res.Artifacts[i].ID == "" {
			res.Artifacts[i].ID = "presentation"
		}
	}
	return res
}

// LastRunArtifact finds an artifact path in the most recent stored run.
func (a *App) LastRunArtifact(ctx context.Context, id string) (string, error) {
	report, err := a.Store.Latest(ctx)
	if err != nil {
		return "", err
	}
	art := report.Artifact(id)
	if art == nil || art.Path == "" {
		return "", fmt.Errorf("last run %s has no %s artifact", report.RunID, id)
	}
	return art.Path, nil
}

// DefaultOutputPath derives an output file next to the input.
func DefaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return inputPath[:len(inputPath)-len(ext)] + "_substituted.xyz"
}
