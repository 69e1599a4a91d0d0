// Package packmol wraps the external molecular packing engine behind the
// probe/build/execute/interpret adapter contract. The generated input deck
// uses the tool's own textual format: a tolerance, an output path, one fixed
// structure block, and one block per gas species with a count and a box
// constraint.
package packmol

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/probaah/probaah/pkg/adapters/process"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/structure"
)

// InstallHint is surfaced when the packing engine is missing.
const InstallHint = "install with: conda install -c conda-forge packmol"

var commonPaths = []string{
	"/usr/local/bin/packmol",
	"/opt/conda/bin/packmol",
	"/usr/bin/packmol",
	"~/bin/packmol",
	"~/Software/packmol/packmol",
}

// Adapter runs the packing engine.
type Adapter struct {
	executable string // "auto" or explicit path
	executor   *process.Executor
	timeout    time.Duration

	probeOnce sync.Once
	probed    domain.Availability
}

// New creates a packing adapter. executable may be "auto".
func New(executable string, timeout time.Duration) *Adapter {
	return &Adapter{
		executable: executable,
		executor:   process.NewExecutor(timeout),
		timeout:    timeout,
	}
}

// Name identifies the adapter in reports and metrics.
func (a *Adapter) Name() string { return "packmol" }

// Probe checks for the executable without side effects. The result is
// cached for the lifetime of the adapter (one run); concurrent probes are
// safe.
func (a *Adapter) Probe(ctx context.Context) domain.Availability {
	a.probeOnce.Do(func() {
		a.probed = process.FindExecutable(a.executable, "packmol", commonPaths, InstallHint)
	})
	return a.probed
}

// Params describes one packing run.
type Params struct {
	// Fixed is the cleaned structure placed once at a fixed position.
	Fixed *structure.MolecularStructure
	// Gas is the molecule template to replicate.
	Gas *structure.MolecularStructure
	// GasLabel names the species, used for scratch file naming.
	GasLabel string
	// Count is the requested multiplicity of the gas molecule.
	Count int
	// Region constrains gas placement.
	Region structure.Box
	// Tolerance is the minimum inter-molecule separation in Å.
	Tolerance float64
	// Dir is the scratch subdirectory this invocation may write to.
	Dir string
}

// Build validates the parameters and writes the input deck plus the
// structure files into the scratch directory. It fails before touching the
// filesystem when the parameter shape is wrong.
func (a *Adapter) Build(params Params) (*domain.ToolInvocation, error) {
	if params.Fixed == nil || params.Fixed.Len() == 0 {
		return nil, fmt.Errorf("packmol: fixed structure is required")
	}
	if params.Gas == nil || params.Gas.Len() == 0 {
		return nil, fmt.Errorf("packmol: at least one gas molecule block is required")
	}
	if params.Count <= 0 {
		return nil, fmt.Errorf("packmol: molecule count must be positive, got %d", params.Count)
	}
	if params.Tolerance <= 0 {
		return nil, fmt.Errorf("packmol: tolerance must be positive, got %g", params.Tolerance)
	}
	if params.Region.Volume() <= 0 {
		return nil, fmt.Errorf("packmol: placement region has non-positive volume")
	}
	if params.Dir == "" {
		return nil, fmt.Errorf("packmol: scratch directory is required")
	}

	fixedPath := filepath.Join(params.Dir, "fixed.xyz")
	if err := params.Fixed.SaveXYZ(fixedPath); err != nil {
		return nil, err
	}
	label := params.GasLabel
	if label == "" {
		label = "gas"
	}
	gasPath := filepath.Join(params.Dir, "gas_"+label+".xyz")
	if err := params.Gas.SaveXYZ(gasPath); err != nil {
		return nil, err
	}
	outputPath := filepath.Join(params.Dir, "packed.xyz")

	deck := Deck(fixedPath, gasPath, outputPath, params.Count, params.Tolerance, params.Region)
	deckPath := filepath.Join(params.Dir, "packmol.inp")
	if err := os.WriteFile(deckPath, []byte(deck), 0o644); err != nil {
		return nil, fmt.Errorf("packmol: write deck: %w", err)
	}

	av := a.Probe(context.Background())
	return &domain.ToolInvocation{
		Adapter:      a.Name(),
		Executable:   av.Path,
		Dir:          params.Dir,
		InputFile:    deckPath,
		InputPayload: deck,
		Stdin:        deck,
	}, nil
}

// Deck renders the packing engine's input format.
func Deck(fixedPath, gasPath, outputPath string, count int, tolerance float64, region structure.Box) string {
	var b strings.Builder
	b.WriteString("# packmol input generated by probaah\n")
	b.WriteString("# gas substitution workflow\n\n")
	fmt.Fprintf(&b, "tolerance %g\n", tolerance)
	b.WriteString("filetype xyz\n")
	fmt.Fprintf(&b, "output %s\n\n", outputPath)

	b.WriteString("# original structure (fixed)\n")
	fmt.Fprintf(&b, "structure %s\n", fixedPath)
	b.WriteString("  number 1\n")
	b.WriteString("  fixed 0.0 0.0 0.0 0.0 0.0 0.0\n")
	b.WriteString("end structure\n\n")

	b.WriteString("# gas molecules\n")
	fmt.Fprintf(&b, "structure %s\n", gasPath)
	fmt.Fprintf(&b, "  number %d\n", count)
	fmt.Fprintf(&b, "  inside box %g %g %g %g %g %g\n",
		region.Min[0], region.Min[1], region.Min[2],
		region.Max[0], region.Max[1], region.Max[2])
	b.WriteString("end structure\n")
	return b.String()
}

// Execute runs the invocation with the adapter's timeout.
func (a *Adapter) Execute(ctx context.Context, inv *domain.ToolInvocation) domain.RawResult {
	return a.executor.Execute(ctx, *inv, a.timeout)
}

// Interpret classifies the raw result. Plain exit-zero is not enough: the
// engine reports imperfect packing on stdout and the output file must
// actually exist.
func (a *Adapter) Interpret(inv *domain.ToolInvocation, raw domain.RawResult) domain.StepResult {
	outputPath := filepath.Join(inv.Dir, "packed.xyz")
	res := domain.StepResult{Kind: domain.KindToolInvocation, Elapsed: raw.Elapsed}

	switch {
	case raw.StartErr != "":
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolNotFound
		res.Error = "packmol could not be started: " + raw.StartErr
		res.Hint = InstallHint
	case raw.TimedOut:
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolExecution
		res.Error = fmt.Sprintf("packmol timed out after %s", raw.Elapsed.Round(time.Second))
		res.Hint = "increase the invocation timeout or reduce the molecule count"
	case raw.ExitCode != 0 || strings.Contains(raw.Stdout, "ENDED WITHOUT PERFECT PACKING"):
		res.Status = domain.StatusFailed
		res.Failure = domain.FailToolExecution
		res.Error = fmt.Sprintf("packmol failed with exit code %d", raw.ExitCode)
		res.Diagnostic = tail(raw.Stdout, 12) + tail(raw.Stderr, 4)
		res.Hint = "input deck preserved at " + inv.InputFile + " for debugging"
	default:
		if _, err := os.Stat(outputPath); err != nil {
			res.Status = domain.StatusFailed
			res.Failure = domain.FailToolExecution
			res.Error = "packmol reported success but produced no output file"
			res.Diagnostic = tail(raw.Stdout, 12)
			return res
		}
		res.Status = domain.StatusSucceeded
		res.Artifacts = []domain.Artifact{{
			Kind: domain.ArtifactStructure,
			Path: outputPath,
		}}
	}
	return res
}

// tail returns the last n lines of s, for compact diagnostics.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := strings.Join(lines, "\n")
	if out != "" {
		out += "\n"
	}
	return out
}
