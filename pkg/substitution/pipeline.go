// Package substitution implements the gas substitution workflow: remove one
// molecular species from a structure and pack replacement gas molecules into
// a density-consistent region, producing a combined structure.
//
// The pipeline is expressed as workflow steps so the orchestrator owns
// retry, skip propagation and reporting. Steps hand data to each other
// through the run context: parsed structures and the placement geometry stay
// in memory, file artifacts land in the run's scratch directory.
package substitution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/probaah/probaah/pkg/adapters/packmol"
	"github.com/probaah/probaah/pkg/adapters/viamd"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/geometry"
	"github.com/probaah/probaah/pkg/structure"
	"github.com/probaah/probaah/pkg/workflow"
)

// Value keys used to pass in-memory data between steps.
const (
	valueSource    = "structure/source"
	valueCleaned   = "structure/cleaned"
	valueGas       = "structure/gas-template"
	valuePlacement = "geometry/placement"
	valuePacked    = "structure/packed"
	valueStats     = "substitution/stats"
)

// Request describes one gas substitution.
type Request struct {
	// InputPath is the source structure file (xyz, pdb or bgf).
	InputPath string `mapstructure:"input_path"`
	// Format optionally forces the input format instead of sniffing.
	Format string `mapstructure:"format,omitempty"`
	// Remove is the species to strip, by formula ("H2O").
	Remove string `mapstructure:"remove"`
	// Gas is the species to pack in ("O2", "N2", "CO2").
	Gas string `mapstructure:"gas"`
	// Count is the number of gas molecules to place.
	Count int `mapstructure:"count"`
	// Density is the target gas density in g/cm³.
	Density float64 `mapstructure:"density"`
	// Geometry is an optional compact override, e.g.
	// "gas-box:23x23x23,offset-z:10".
	Geometry string `mapstructure:"geometry,omitempty"`
	// OutputPath receives the combined structure; empty keeps it in scratch.
	OutputPath string `mapstructure:"output_path,omitempty"`

	// Validate appends a validation step.
	Validate bool `mapstructure:"validate,omitempty"`
	// Interactive requests operator inspection during validation.
	Interactive bool `mapstructure:"interactive,omitempty"`
	// RequireApproval makes a validation rejection fail the workflow instead
	// of annotating it.
	RequireApproval bool `mapstructure:"require_approval,omitempty"`
}

// Stats summarizes what the substitution actually did.
type Stats struct {
	RemovedMolecules int     `json:"removed_molecules"`
	RemovedAtoms     int     `json:"removed_atoms"`
	RequestedCount   int     `json:"requested_count"`
	PlacedCount      int     `json:"placed_count"`
	SourceAtoms      int     `json:"source_atoms"`
	CleanedAtoms     int     `json:"cleaned_atoms"`
	FinalAtoms       int     `json:"final_atoms"`
	TargetDensity    float64 `json:"target_density"`
	AchievedDensity  float64 `json:"achieved_density"`
}

// Summary renders the stats for step diagnostics.
func (st Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "removed %d molecules (%d atoms), ", st.RemovedMolecules, st.RemovedAtoms)
	fmt.Fprintf(&b, "placed %d/%d gas molecules, ", st.PlacedCount, st.RequestedCount)
	fmt.Fprintf(&b, "%d -> %d -> %d atoms, ", st.SourceAtoms, st.CleanedAtoms, st.FinalAtoms)
	fmt.Fprintf(&b, "density %.4g g/cm³ (target %.4g)", st.AchievedDensity, st.TargetDensity)
	return b.String()
}

// Pipeline binds the substitution steps to their tool adapters.
type Pipeline struct {
	Packmol   *packmol.Adapter
	Validator *viamd.Validator
	// Tolerance is the packing tolerance in Å.
	Tolerance float64
	Logger    *slog.Logger
	// Hooks receives tool invocation events, if set.
	Hooks domain.LifecycleHooks
}

// Step IDs of the standard substitution workflow.
const (
	StepParse    = "parse-structure"
	StepRemove   = "remove-species"
	StepGeometry = "plan-geometry"
	StepPack     = "pack-gas"
	StepAssemble = "assemble-result"
	StepValidate = "validate-structure"
)

// Plan expands a request into the substitution step graph.
func (p *Pipeline) Plan(req Request) []domain.WorkflowStep {
	params := encodeRequest(req)
	steps := []domain.WorkflowStep{
		{
			ID: StepParse, Kind: domain.KindStructureOp,
			Params:  withOp(params, "parse"),
			Outputs: []string{"source-structure"},
		},
		{
			ID: StepRemove, Kind: domain.KindStructureOp,
			Params:    withOp(params, "remove"),
			DependsOn: []string{StepParse},
			Outputs:   []string{"cleaned-structure"},
		},
		{
			ID: StepGeometry, Kind: domain.KindStructureOp,
			Params:    withOp(params, "geometry"),
			DependsOn: []string{StepRemove},
		},
		{
			ID: StepPack, Kind: domain.KindToolInvocation,
			Params:    withOp(params, "pack"),
			DependsOn: []string{StepGeometry},
			Inputs:    []string{"cleaned-structure"},
			Outputs:   []string{"packed-structure"},
			Retry:     &domain.RetryPolicy{MaxAttempts: 2, Backoff: 2 * time.Second},
		},
		{
			ID: StepAssemble, Kind: domain.KindStructureOp,
			Params:    withOp(params, "assemble"),
			DependsOn: []string{StepPack},
			Inputs:    []string{"packed-structure"},
			Outputs:   []string{"final-structure"},
		},
	}
	if req.Validate {
		steps = append(steps, domain.WorkflowStep{
			ID: StepValidate, Kind: domain.KindValidation,
			Params:    withOp(params, "validate"),
			DependsOn: []string{StepAssemble},
			Inputs:    []string{"final-structure"},
			Outputs:   []string{"validation-previews"},
		})
	}
	return steps
}

// Registry returns the step runners for the substitution kinds.
func (p *Pipeline) Registry() workflow.Registry {
	return workflow.Registry{
		domain.KindStructureOp:    p.runStructureOp,
		domain.KindToolInvocation: p.runTool,
		domain.KindValidation:     p.runValidation,
	}
}

func (p *Pipeline) runStructureOp(ctx context.Context, rc *workflow.RunContext, step domain.WorkflowStep) domain.StepResult {
	req, op, err := decodeRequest(step.Params)
	if err != nil {
		return failResult(domain.Failf(domain.FailOrchestration, "step %s: %v", step.ID, err))
	}
	switch op {
	case "parse":
		return p.parse(rc, req)
	case "remove":
		return p.remove(rc, req)
	case "geometry":
		return p.planGeometry(rc, req)
	case "assemble":
		return p.assemble(rc, req)
	default:
		return failResult(domain.Failf(domain.FailOrchestration, "unknown structure op %q", op))
	}
}

func (p *Pipeline) parse(rc *workflow.RunContext, req Request) domain.StepResult {
	started := time.Now()
	s, err := structure.Parse(req.InputPath, structure.Format(req.Format))
	if err != nil {
		return failResult(err)
	}
	rc.PutValue(valueSource, s)
	p.logger().Info("structure parsed",
		"path", req.InputPath, "atoms", s.Len(), "format", string(s.Format))
	return domain.StepResult{
		Status:  domain.StatusSucceeded,
		Elapsed: time.Since(started),
		Artifacts: []domain.Artifact{{
			ID: "source-structure", Kind: domain.ArtifactStructure, Path: req.InputPath,
		}},
		Diagnostic: fmt.Sprintf("%d atoms, formula %s",
			s.Len(), structure.Formula(s.ElementCounts())),
	}
}

func (p *Pipeline) remove(rc *workflow.RunContext, req Request) domain.StepResult {
	started := time.Now()
	source, ok := value[*structure.MolecularStructure](rc, valueSource)
	if !ok {
		return failResult(domain.Failf(domain.FailOrchestration, "no parsed structure in run context"))
	}

	cleaned, removed := source.RemoveSpecies(req.Remove)
	if removed == 0 {
		species := source.SpeciesTable()
		names := make([]string, 0, len(species))
		for formula := range species {
			names = append(names, formula)
		}
		sort.Strings(names)
		return failResult(domain.NewFailure(domain.FailNeedsClarification,
			fmt.Errorf("species %s not present in structure", req.Remove),
			"available species: "+strings.Join(names, ", ")))
	}

	path := filepath.Join(rc.ScratchDir, "cleaned.xyz")
	if err := cleaned.SaveXYZ(path); err != nil {
		return failResult(err)
	}
	rc.PutValue(valueCleaned, cleaned)

	stats := Stats{
		RemovedMolecules: removed,
		RemovedAtoms:     source.Len() - cleaned.Len(),
		RequestedCount:   req.Count,
		SourceAtoms:      source.Len(),
		CleanedAtoms:     cleaned.Len(),
		TargetDensity:    req.Density,
	}
	rc.PutValue(valueStats, stats)

	p.logger().Info("species removed",
		"species", req.Remove, "molecules", removed, "atoms_left", cleaned.Len())
	return domain.StepResult{
		Status:  domain.StatusSucceeded,
		Elapsed: time.Since(started),
		Artifacts: []domain.Artifact{{
			ID: "cleaned-structure", Kind: domain.ArtifactStructure, Path: path,
		}},
		Diagnostic: fmt.Sprintf("removed %d %s molecules (%d atoms)",
			removed, req.Remove, stats.RemovedAtoms),
	}
}

func (p *Pipeline) planGeometry(rc *workflow.RunContext, req Request) domain.StepResult {
	started := time.Now()
	cleaned, ok := value[*structure.MolecularStructure](rc, valueCleaned)
	if !ok {
		return failResult(domain.Failf(domain.FailOrchestration, "no cleaned structure in run context"))
	}

	gas := structure.GasTemplate(req.Gas)
	spec, err := geometry.ParseSpec(req.Geometry)
	if err != nil {
		return failResult(domain.NewFailure(domain.FailGeometry, err,
			"geometry syntax: gas-box:AxBxC,offset-z:N,final-box:AxBxC"))
	}

	placement, err := geometry.Compute(
		cleaned.BoundingBox(), req.Density, req.Count, gas.Mass(), p.tolerance(), spec)
	if err != nil {
		return failResult(err)
	}

	rc.PutValue(valueGas, gas)
	rc.PutValue(valuePlacement, placement)

	region := placement.GasRegion
	p.logger().Info("placement solved",
		"gas", req.Gas, "count", req.Count,
		"region_volume", fmt.Sprintf("%.1f", region.Volume()),
		"density", fmt.Sprintf("%.4g", placement.AchievedDensity()))
	return domain.StepResult{
		Status:  domain.StatusSucceeded,
		Elapsed: time.Since(started),
		Diagnostic: fmt.Sprintf("gas region %.1f×%.1f×%.1f Å at z=%.1f, density %.4g g/cm³",
			region.Lengths()[0], region.Lengths()[1], region.Lengths()[2],
			region.Min[2], placement.AchievedDensity()),
	}
}

func (p *Pipeline) runTool(ctx context.Context, rc *workflow.RunContext, step domain.WorkflowStep) domain.StepResult {
	req, _, err := decodeRequest(step.Params)
	if err != nil {
		return failResult(domain.Failf(domain.FailOrchestration, "step %s: %v", step.ID, err))
	}
	cleaned, ok1 := value[*structure.MolecularStructure](rc, valueCleaned)
	gas, ok2 := value[*structure.MolecularStructure](rc, valueGas)
	placement, ok3 := value[*geometry.PlacementGeometry](rc, valuePlacement)
	if !ok1 || !ok2 || !ok3 {
		return failResult(domain.Failf(domain.FailOrchestration, "packing prerequisites missing from run context"))
	}

	if av := p.Packmol.Probe(ctx); !av.Available {
		return domain.StepResult{
			Status:  domain.StatusFailed,
			Failure: domain.FailToolNotFound,
			Error:   av.Reason,
			Hint:    av.Hint,
		}
	}

	dir := filepath.Join(rc.ScratchDir, "packmol")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failResult(err)
	}
	inv, err := p.Packmol.Build(packmol.Params{
		Fixed:     cleaned,
		Gas:       gas,
		GasLabel:  strings.ToLower(req.Gas),
		Count:     req.Count,
		Region:    placement.GasRegion,
		Tolerance: p.tolerance(),
		Dir:       dir,
	})
	if err != nil {
		return failResult(err)
	}

	p.emitToolInvoke(ctx, rc.RunID, StepPack, inv.Adapter)
	raw := p.Packmol.Execute(ctx, inv)
	res := p.Packmol.Interpret(inv, raw)
	p.emitToolReturn(ctx, rc.RunID, StepPack, inv.Adapter, raw.Elapsed, res.Status != domain.StatusSucceeded)

	// Name the artifact for downstream steps.
	for i := range res.Artifacts {
		if res.Artifacts[i].ID == "" {
			res.Artifacts[i].ID = "packed-structure"
		}
	}
	return res
}

func (p *Pipeline) assemble(rc *workflow.RunContext, req Request) domain.StepResult {
	started := time.Now()
	packed, ok := rc.Artifact("packed-structure")
	if !ok {
		return failResult(domain.Failf(domain.FailOrchestration, "no packed structure artifact"))
	}
	stats, _ := value[Stats](rc, valueStats)
	gas, okGas := value[*structure.MolecularStructure](rc, valueGas)
	placement, okPlacement := value[*geometry.PlacementGeometry](rc, valuePlacement)

	final, err := structure.Parse(packed.Path, structure.FormatXYZ)
	if err != nil {
		return failResult(err)
	}

	stats.FinalAtoms = final.Len()
	if okGas && gas.Len() > 0 {
		stats.PlacedCount = (final.Len() - stats.CleanedAtoms) / gas.Len()
	}
	if okPlacement {
		stats.AchievedDensity = placement.AchievedDensity()
	}
	rc.PutValue(valueStats, stats)
	rc.PutValue(valuePacked, final)

	outPath := req.OutputPath
	if outPath == "" {
		outPath = filepath.Join(rc.ScratchDir, "combined.xyz")
	}
	if err := final.SaveXYZ(outPath); err != nil {
		return failResult(err)
	}

	res := domain.StepResult{
		Status:  domain.StatusSucceeded,
		Elapsed: time.Since(started),
		Artifacts: []domain.Artifact{{
			ID: "final-structure", Kind: domain.ArtifactStructure, Path: outPath,
		}},
		Diagnostic: stats.Summary(),
	}
	if stats.PlacedCount < stats.RequestedCount {
		res.Diagnostic += fmt.Sprintf("; warning: only %d of %d gas molecules placed",
			stats.PlacedCount, stats.RequestedCount)
	}
	p.logger().Info("substitution assembled", "output", outPath, "atoms", final.Len())
	return res
}

func (p *Pipeline) runValidation(ctx context.Context, rc *workflow.RunContext, step domain.WorkflowStep) domain.StepResult {
	started := time.Now()
	req, _, err := decodeRequest(step.Params)
	if err != nil {
		return failResult(domain.Failf(domain.FailOrchestration, "step %s: %v", step.ID, err))
	}
	var path string
	var subject *structure.MolecularStructure
	if final, ok := rc.Artifact("final-structure"); ok {
		path = final.Path
		subject, ok = value[*structure.MolecularStructure](rc, valuePacked)
		if !ok {
			return failResult(domain.Failf(domain.FailOrchestration, "no packed structure in run context"))
		}
	} else if req.InputPath != "" {
		// Standalone validation of an existing file.
		path = req.InputPath
		s, err := structure.Parse(path, structure.Format(req.Format))
		if err != nil {
			return failResult(err)
		}
		subject = s
	} else {
		return failResult(domain.Failf(domain.FailOrchestration,
			"nothing to validate: no structure artifact or input path"))
	}

	expected := 0
	if stats, ok := value[Stats](rc, valueStats); ok && stats.PlacedCount > 0 {
		expected = stats.CleanedAtoms + stats.PlacedCount*atomsPerPlaced(rc)
	}

	report, err := p.Validator.Validate(ctx, path, subject, viamd.Options{
		Interactive:   req.Interactive,
		ExpectedAtoms: expected,
		Dir:           filepath.Join(rc.ScratchDir, "previews"),
	})
	if err != nil {
		return failResult(err)
	}

	res := domain.StepResult{
		Status:  domain.StatusSucceeded,
		Elapsed: time.Since(started),
	}
	if len(report.Previews) > 0 {
		res.Artifacts = append(res.Artifacts, domain.Artifact{
			ID: "validation-previews", Kind: domain.ArtifactImageSet, Paths: report.Previews,
		})
	}
	if report.Approved {
		res.Diagnostic = fmt.Sprintf("approved (%s)", report.Mode)
		return res
	}

	issues := strings.Join(report.Issues, "; ")
	if report.Feedback != "" {
		issues += "; operator: " + report.Feedback
	}
	if req.RequireApproval {
		res.Status = domain.StatusFailed
		res.Failure = domain.FailValidationRejected
		res.Error = "structure rejected: " + issues
		res.Hint = "inspect the previews and adjust density, count or geometry"
		return res
	}
	// Advisory mode: rejection is recorded but does not fail the run.
	res.Diagnostic = fmt.Sprintf("rejected (%s, advisory): %s", report.Mode, issues)
	return res
}

func atomsPerPlaced(rc *workflow.RunContext) int {
	if gas, ok := value[*structure.MolecularStructure](rc, valueGas); ok {
		return gas.Len()
	}
	return 0
}

func (p *Pipeline) tolerance() float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return 2.0
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) emitToolInvoke(ctx context.Context, runID, stepID, adapter string) {
	if p.Hooks.OnToolInvoke != nil {
		p.Hooks.OnToolInvoke(ctx, &domain.ToolEvent{
			Timestamp: time.Now(), RunID: runID, StepID: stepID, Adapter: adapter,
		})
	}
}

func (p *Pipeline) emitToolReturn(ctx context.Context, runID, stepID, adapter string, elapsed time.Duration, isError bool) {
	if p.Hooks.OnToolReturn != nil {
		p.Hooks.OnToolReturn(ctx, &domain.ToolEvent{
			Timestamp: time.Now(), RunID: runID, StepID: stepID,
			Adapter: adapter, Elapsed: elapsed, IsError: isError,
		})
	}
}

// failResult converts an error into a failed step result using the failure
// taxonomy carried by the error.
func failResult(err error) domain.StepResult {
	return domain.StepResult{
		Status:  domain.StatusFailed,
		Failure: domain.ClassifyErr(err),
		Error:   err.Error(),
		Hint:    domain.HintFor(err),
	}
}

// value fetches a typed value from the run context.
func value[T any](rc *workflow.RunContext, key string) (T, bool) {
	var zero T
	v, ok := rc.Value(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, ok
}

// encodeRequest flattens the request into step params.
func encodeRequest(req Request) map[string]any {
	out := map[string]any{}
	_ = mapstructure.Decode(req, &out)
	return out
}

// decodeRequest rebuilds the request from step params and extracts the op.
func decodeRequest(params map[string]any) (Request, string, error) {
	var req Request
	if err := mapstructure.WeakDecode(params, &req); err != nil {
		return req, "", fmt.Errorf("decode params: %w", err)
	}
	op, _ := params["op"].(string)
	return req, op, nil
}

func withOp(params map[string]any, op string) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["op"] = op
	return out
}
