// Package viamd wraps the external structure visualizer for validation.
// Validation runs in one of two modes: interactive (the visualizer is
// launched and the operator approves or rejects) or automated (deterministic
// geometric sanity checks). Preview renderings are produced in both modes.
package viamd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/probaah/probaah/pkg/adapters/process"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/structure"
)

// InstallHint is surfaced when the visualizer is missing.
const InstallHint = "install VIAMD or set molecular.viamd.executable in the config"

// MinBondingDistance is the automated check's floor for inter-atomic
// separation, in Å. Anything closer indicates overlapping placements.
const MinBondingDistance = 0.5

var commonPaths = []string{
	"~/Software/VIAMD/viamd",
	"~/Downloads/VIAMD/viamd",
	"/Applications/VIAMD/viamd",
	"/usr/local/bin/viamd",
}

// Mode records which validation path actually ran.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeAutomated   Mode = "automated"
)

// Report is the outcome of a validation.
type Report struct {
	Approved bool           `json:"approved"`
	Mode     Mode           `json:"mode"`
	Feedback string         `json:"feedback,omitempty"`
	Issues   []string       `json:"issues,omitempty"`
	Checks   map[string]any `json:"checks,omitempty"`
	Previews []string       `json:"previews,omitempty"`
}

// Validator is the validation tool adapter.
type Validator struct {
	executable string
	executor   *process.Executor
	timeout    time.Duration

	// Input and Output carry the operator dialogue in interactive mode.
	Input  io.Reader
	Output io.Writer

	probeOnce sync.Once
	probed    domain.Availability
}

// New creates a validator. executable may be "auto".
func New(executable string, timeout time.Duration) *Validator {
	return &Validator{
		executable: executable,
		executor:   process.NewExecutor(timeout),
		timeout:    timeout,
	}
}

// Name identifies the adapter in reports and metrics.
func (v *Validator) Name() string { return "viamd" }

// Probe checks for the visualizer executable. Cached per run; safe for
// concurrent probes.
func (v *Validator) Probe(ctx context.Context) domain.Availability {
	v.probeOnce.Do(func() {
		v.probed = process.FindExecutable(v.executable, "viamd", commonPaths, InstallHint)
	})
	return v.probed
}

// Options controls one validation.
type Options struct {
	// Interactive requests operator inspection. Automated mode is used when
	// the visualizer is unavailable or no operator terminal is attached.
	Interactive bool
	// ExpectedAtoms, when positive, is checked against the structure.
	ExpectedAtoms int
	// Dir is the scratch subdirectory for preview renderings.
	Dir string
}

// Validate runs the validation workflow: previews first, then interactive
// or automated inspection. The returned report records which mode ran.
func (v *Validator) Validate(ctx context.Context, path string, s *structure.MolecularStructure, opts Options) (*Report, error) {
	previews, err := RenderPreviews(s, opts.Dir)
	if err != nil {
		// Previews are best effort; the validation itself still runs.
		previews = nil
	}

	var report *Report
	if opts.Interactive && v.Probe(ctx).Available && v.Input != nil {
		report = v.interactive(ctx, path)
	} else {
		report = v.automated(s, opts)
	}
	report.Previews = previews
	return report, nil
}

// interactive launches the visualizer on the structure and blocks until the
// operator supplies an approval or rejection.
func (v *Validator) interactive(ctx context.Context, path string) *Report {
	report := &Report{Mode: ModeInteractive}

	av := v.Probe(ctx)
	launched, err := v.executor.Launch(ctx, domain.ToolInvocation{
		Adapter:    v.Name(),
		Executable: av.Path,
		Args:       []string{path},
	})
	if err != nil {
		report.Issues = append(report.Issues, "could not launch visualizer: "+err.Error())
		return report
	}
	defer launched.Stop()

	fmt.Fprintf(v.Output, "Visualizer launched on %s\n", path)
	fmt.Fprintln(v.Output, "Inspect for overlapping atoms, unrealistic bond lengths and density distribution.")
	fmt.Fprint(v.Output, "Does the structure look correct? [y/N]: ")

	answer, err := readLine(ctx, v.Input)
	if err != nil {
		report.Issues = append(report.Issues, "no operator response: "+err.Error())
		return report
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	report.Approved = answer == "y" || answer == "yes"
	if !report.Approved {
		fmt.Fprint(v.Output, "Describe the issues observed: ")
		feedback, _ := readLine(ctx, v.Input)
		report.Feedback = strings.TrimSpace(feedback)
		report.Issues = append(report.Issues,
			"operator rejected the structure",
		)
	}
	return report
}

// automated runs the deterministic sanity checks: minimum inter-atomic
// distance and, when known, total atom count.
func (v *Validator) automated(s *structure.MolecularStructure, opts Options) *Report {
	report := &Report{
		Mode:     ModeAutomated,
		Approved: true,
		Checks:   map[string]any{},
	}

	minDist := s.MinimumDistance()
	report.Checks["min_distance"] = minDist
	report.Checks["atom_count"] = s.Len()

	if s.Len() >= 2 && minDist < MinBondingDistance {
		report.Approved = false
		report.Issues = append(report.Issues,
			fmt.Sprintf("atoms too close: %.2f Å (minimum %.2f Å)", minDist, MinBondingDistance))
	}
	if opts.ExpectedAtoms > 0 && s.Len() != opts.ExpectedAtoms {
		report.Approved = false
		report.Issues = append(report.Issues,
			fmt.Sprintf("atom count %d does not match expected %d", s.Len(), opts.ExpectedAtoms))
	}
	return report
}

// readLine reads one line, honoring context cancellation.
func readLine(ctx context.Context, r io.Reader) (string, error) {
	type lineErr struct {
		line string
		err  error
	}
	ch := make(chan lineErr, 1)
	go func() {
		reader := bufio.NewReader(r)
		line, err := reader.ReadString('\n')
		ch <- lineErr{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case le := <-ch:
		if le.err != nil && le.line == "" {
			return "", le.err
		}
		return le.line, nil
	}
}
