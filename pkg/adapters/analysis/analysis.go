// Package analysis wraps the external trajectory analyzer and the slide
// generator. Both are opaque collaborators: the orchestrator only builds an
// invocation, runs it with a timeout, and classifies the outcome. Their
// internals (bond/RDF computation, slide rendering) are not re-specified
// here.
package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/probaah/probaah/pkg/adapters/process"
	"github.com/probaah/probaah/pkg/domain"
)

// Analyzer runs the trajectory analysis tool.
type Analyzer struct {
	executable string
	executor   *process.Executor
	timeout    time.Duration
	probeOnce  sync.Once
	probed     domain.Availability
}

// NewAnalyzer creates the analyzer adapter. executable may be "auto".
func NewAnalyzer(executable string, timeout time.Duration) *Analyzer {
	return &Analyzer{
		executable: executable,
		executor:   process.NewExecutor(timeout),
		timeout:    timeout,
	}
}

func (a *Analyzer) Name() string { return "trajectory-analyzer" }

func (a *Analyzer) Probe(ctx context.Context) domain.Availability {
	a.probeOnce.Do(func() {
		a.probed = process.FindExecutable(a.executable, "probaah-analyze", nil,
			"install the probaah analysis plugin (probaah-analyze)")
	})
	return a.probed
}

// Analyze runs the analyzer on a trajectory artifact and interprets the
// outcome. The analysis report directory is the produced artifact.
func (a *Analyzer) Analyze(ctx context.Context, trajectoryPath, dir string) domain.StepResult {
	av := a.Probe(ctx)
	if !av.Available {
		return domain.StepResult{
			Kind:    domain.KindAnalysis,
			Status:  domain.StatusFailed,
			Failure: domain.FailToolNotFound,
			Error:   av.Reason,
			Hint:    av.Hint,
		}
	}

	outDir := filepath.Join(dir, "analysis")
	inv := domain.ToolInvocation{
		Adapter:    a.Name(),
		Executable: av.Path,
		Args:       []string{trajectoryPath, "--output", outDir},
		Dir:        dir,
	}
	raw := a.executor.Execute(ctx, inv, a.timeout)
	return interpretOpaque(domain.KindAnalysis, raw, domain.Artifact{
		Kind: domain.ArtifactReport,
		Path: outDir,
	})
}

// Presenter runs the slide generator.
type Presenter struct {
	executable string
	executor   *process.Executor
	timeout    time.Duration
	probeOnce  sync.Once
	probed     domain.Availability
}

// NewPresenter creates the presentation adapter. executable may be "auto".
func NewPresenter(executable string, timeout time.Duration) *Presenter {
	return &Presenter{
		executable: executable,
		executor:   process.NewExecutor(timeout),
		timeout:    timeout,
	}
}

func (p *Presenter) Name() string { return "slide-generator" }

func (p *Presenter) Probe(ctx context.Context) domain.Availability {
	p.probeOnce.Do(func() {
		p.probed = process.FindExecutable(p.executable, "probaah-slides", nil,
			"install the probaah presentation plugin (probaah-slides)")
	})
	return p.probed
}

// Present renders slides from an analysis directory.
func (p *Presenter) Present(ctx context.Context, analysisDir, title, dir string) domain.StepResult {
	av := p.Probe(ctx)
	if !av.Available {
		return domain.StepResult{
			Kind:    domain.KindPresentation,
			Status:  domain.StatusFailed,
			Failure: domain.FailToolNotFound,
			Error:   av.Reason,
			Hint:    av.Hint,
		}
	}

	outFile := filepath.Join(dir, "presentation.pptx")
	inv := domain.ToolInvocation{
		Adapter:    p.Name(),
		Executable: av.Path,
		Args:       []string{analysisDir, "--title", title, "--output", outFile},
		Dir:        dir,
	}
	raw := p.executor.Execute(ctx, inv, p.timeout)
	return interpretOpaque(domain.KindPresentation, raw, domain.Artifact{
		Kind: domain.ArtifactPresentation,
		Path: outFile,
	})
}

func interpretOpaque(kind string, raw domain.RawResult, artifact domain.Artifact) domain.StepResult {
	res := domain.StepResult{Kind: kind, Elapsed: raw.Elapsed}
	switch {
	case raw.StartErr != "":
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolNotFound
		res.Error = "tool could not be started: " + raw.StartErr
	case raw.TimedOut:
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolExecution
		res.Error = fmt.Sprintf("tool timed out after %s", raw.Elapsed.Round(time.Second))
	case raw.ExitCode != 0:
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolExecution
		res.Error = fmt.Sprintf("tool failed with exit code %d", raw.ExitCode)
		res.Diagnostic = raw.Stderr
	default:
		res.Status = domain.StatusSucceeded
		res.Artifacts = []domain.Artifact{artifact}
	}
	return res
}
