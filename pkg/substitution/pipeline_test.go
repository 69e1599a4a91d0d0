package substitution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/adapters/packmol"
	"github.com/probaah/probaah/pkg/adapters/viamd"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/structure"
	"github.com/probaah/probaah/pkg/workflow"
)

// writeTestStructure writes an XYZ file with n water molecules spaced on a
// grid plus a slab of silicon atoms, so species removal has both a target
// and survivors.
func writeTestStructure(t *testing.T, dir string, waters, silicons int) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", waters*3+silicons)
	b.WriteString("test structure\n")
	for i := 0; i < waters; i++ {
		x := float64(i%5) * 4.0
		y := float64(i/5) * 4.0
		fmt.Fprintf(&b, "O %.3f %.3f 10.000\n", x, y)
		fmt.Fprintf(&b, "H %.3f %.3f 10.757\n", x+0.586, y)
		fmt.Fprintf(&b, "H %.3f %.3f 10.757\n", x-0.586, y)
	}
	for i := 0; i < silicons; i++ {
		fmt.Fprintf(&b, "Si %.3f %.3f 0.000\n", float64(i%5)*4.0, float64(i/5)*4.0)
	}
	path := filepath.Join(dir, "source.xyz")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		Packmol:   packmol.New("auto", time.Second),
		Validator: viamd.New("auto", time.Second),
		Tolerance: 2.0,
	}
}

func TestPlan_StepGraph(t *testing.T) {
	p := newTestPipeline(t)

	t.Run("without validation", func(t *testing.T) {
		steps := p.Plan(Request{InputPath: "in.xyz", Remove: "H2O", Gas: "O2", Count: 10, Density: 0.001})
		require.Len(t, steps, 5)
		assert.Equal(t, StepParse, steps[0].ID)
		assert.Equal(t, StepAssemble, steps[4].ID)
		assert.Equal(t, []string{StepPack}, steps[4].DependsOn)
	})

	t.Run("with validation", func(t *testing.T) {
		steps := p.Plan(Request{InputPath: "in.xyz", Remove: "H2O", Gas: "O2", Count: 10, Density: 0.001, Validate: true})
		require.Len(t, steps, 6)
		last := steps[5]
		assert.Equal(t, StepValidate, last.ID)
		assert.Equal(t, domain.KindValidation, last.Kind)
		assert.Equal(t, []string{StepAssemble}, last.DependsOn)
	})

	t.Run("pack step is retryable", func(t *testing.T) {
		steps := p.Plan(Request{InputPath: "in.xyz", Remove: "H2O", Gas: "O2", Count: 10, Density: 0.001})
		pack := steps[3]
		require.Equal(t, StepPack, pack.ID)
		require.NotNil(t, pack.Retry)
		assert.Equal(t, 2, pack.Retry.MaxAttempts)
	})
}

func TestStructureOps_ParseRemoveGeometry(t *testing.T) {
	dir := t.TempDir()
	input := writeTestStructure(t, dir, 10, 20)

	p := newTestPipeline(t)
	rc := workflow.NewRunContext("test-run", dir)
	req := Request{
		InputPath: input,
		Remove:    "H2O",
		Gas:       "O2",
		Count:     5,
		Density:   0.0005,
	}
	steps := p.Plan(req)
	registry := p.Registry()
	ctx := context.Background()

	parseRes := registry[domain.KindStructureOp](ctx, rc, steps[0])
	require.Equal(t, domain.StatusSucceeded, parseRes.Status, parseRes.Error)
	assert.Contains(t, parseRes.Diagnostic, "50 atoms")

	removeRes := registry[domain.KindStructureOp](ctx, rc, steps[1])
	require.Equal(t, domain.StatusSucceeded, removeRes.Status, removeRes.Error)
	assert.Contains(t, removeRes.Diagnostic, "removed 10 H2O molecules (30 atoms)")

	cleanedArtifact, ok := rc.Artifact("cleaned-structure")
	require.True(t, ok)
	cleaned, err := structure.Parse(cleanedArtifact.Path, structure.FormatXYZ)
	require.NoError(t, err)
	assert.Equal(t, 20, cleaned.Len(), "only silicon survives")

	geoRes := registry[domain.KindStructureOp](ctx, rc, steps[2])
	require.Equal(t, domain.StatusSucceeded, geoRes.Status, geoRes.Error)
	assert.Contains(t, geoRes.Diagnostic, "gas region")
}

func TestRemove_AbsentSpecies(t *testing.T) {
	dir := t.TempDir()
	input := writeTestStructure(t, dir, 0, 10)

	p := newTestPipeline(t)
	rc := workflow.NewRunContext("test-run", dir)
	req := Request{InputPath: input, Remove: "H2O", Gas: "O2", Count: 5, Density: 0.001}
	steps := p.Plan(req)
	registry := p.Registry()
	ctx := context.Background()

	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[0]).Status)
	res := registry[domain.KindStructureOp](ctx, rc, steps[1])
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, domain.FailNeedsClarification, res.Failure)
	assert.Contains(t, res.Hint, "available species: Si")
}

func TestGeometry_InfeasibleDensity(t *testing.T) {
	dir := t.TempDir()
	input := writeTestStructure(t, dir, 10, 20)

	p := newTestPipeline(t)
	rc := workflow.NewRunContext("test-run", dir)
	// An absurd target density: the per-molecule volume drops below the
	// packing limit at 2 Å tolerance.
	req := Request{InputPath: input, Remove: "H2O", Gas: "O2", Count: 100, Density: 15.0}
	steps := p.Plan(req)
	registry := p.Registry()
	ctx := context.Background()

	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[0]).Status)
	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[1]).Status)
	res := registry[domain.KindStructureOp](ctx, rc, steps[2])
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, domain.FailGeometry, res.Failure)
}

func TestAssemble_StatsFromPackedResult(t *testing.T) {
	dir := t.TempDir()
	input := writeTestStructure(t, dir, 10, 20)

	p := newTestPipeline(t)
	rc := workflow.NewRunContext("test-run", dir)
	req := Request{
		InputPath:  input,
		Remove:     "H2O",
		Gas:        "O2",
		Count:      5,
		Density:    0.0005,
		OutputPath: filepath.Join(dir, "combined.xyz"),
	}
	steps := p.Plan(req)
	registry := p.Registry()
	ctx := context.Background()

	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[0]).Status)
	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[1]).Status)
	require.Equal(t, domain.StatusSucceeded, registry[domain.KindStructureOp](ctx, rc, steps[2]).Status)

	// Simulate a completed packing run: cleaned slab plus 5 O2 molecules.
	var b strings.Builder
	b.WriteString("30\npacked\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Si %.3f %.3f 0.000\n", float64(i%5)*4.0, float64(i/5)*4.0)
	}
	for i := 0; i < 5; i++ {
		z := 20.0 + float64(i)*5.0
		fmt.Fprintf(&b, "O 1.000 1.000 %.3f\n", z)
		fmt.Fprintf(&b, "O 1.000 1.000 %.3f\n", z+1.21)
	}
	packedPath := filepath.Join(dir, "packed.xyz")
	require.NoError(t, os.WriteFile(packedPath, []byte(b.String()), 0o644))
	rc.PutArtifact(domain.Artifact{ID: "packed-structure", Kind: domain.ArtifactStructure, Path: packedPath})

	res := registry[domain.KindStructureOp](ctx, rc, steps[4])
	require.Equal(t, domain.StatusSucceeded, res.Status, res.Error)

	stats, ok := rc.Value("substitution/stats")
	require.True(t, ok)
	st := stats.(Stats)
	assert.Equal(t, 10, st.RemovedMolecules)
	assert.Equal(t, 30, st.RemovedAtoms)
	assert.Equal(t, 5, st.PlacedCount)
	assert.Equal(t, 50, st.SourceAtoms)
	assert.Equal(t, 20, st.CleanedAtoms)
	assert.Equal(t, 30, st.FinalAtoms)

	combined, err := structure.Parse(req.OutputPath, structure.FormatXYZ)
	require.NoError(t, err)
	assert.Equal(t, 30, combined.Len())
}

func TestValidation_AutomatedAdvisoryAndRequired(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t)

	// An overlapping pair trips the minimum-distance check.
	bad := &structure.MolecularStructure{
		Atoms: []structure.Atom{
			{Element: "O", X: 0, Y: 0, Z: 0},
			{Element: "O", X: 0.1, Y: 0, Z: 0},
		},
		Format: structure.FormatXYZ,
	}
	badPath := filepath.Join(dir, "bad.xyz")
	require.NoError(t, bad.SaveXYZ(badPath))

	run := func(requireApproval bool) domain.StepResult {
		rc := workflow.NewRunContext("test-run", t.TempDir())
		rc.PutArtifact(domain.Artifact{ID: "final-structure", Path: badPath})
		rc.PutValue("structure/packed", bad)
		step := p.Plan(Request{
			InputPath: badPath, Remove: "H2O", Gas: "O2", Count: 1, Density: 0.001,
			Validate: true, RequireApproval: requireApproval,
		})[5]
		return p.Registry()[domain.KindValidation](context.Background(), rc, step)
	}

	t.Run("advisory rejection succeeds", func(t *testing.T) {
		res := run(false)
		assert.Equal(t, domain.StatusSucceeded, res.Status)
		assert.Contains(t, res.Diagnostic, "rejected")
		assert.Contains(t, res.Diagnostic, "atoms too close")
	})

	t.Run("required approval fails", func(t *testing.T) {
		res := run(true)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.FailValidationRejected, res.Failure)
	})
}

func TestValidation_StandaloneFile(t *testing.T) {
	dir := t.TempDir()
	input := writeTestStructure(t, dir, 2, 0)
	p := newTestPipeline(t)

	t.Run("validates a file without a prior run", func(t *testing.T) {
		rc := workflow.NewRunContext("test-run", t.TempDir())
		step := domain.WorkflowStep{
			ID:   StepValidate,
			Kind: domain.KindValidation,
			Params: map[string]any{
				"op":         "validate",
				"input_path": input,
			},
		}
		res := p.Registry()[domain.KindValidation](context.Background(), rc, step)
		require.Equal(t, domain.StatusSucceeded, res.Status, res.Error)
		assert.Contains(t, res.Diagnostic, "approved")
	})

	t.Run("no artifact and no path", func(t *testing.T) {
		rc := workflow.NewRunContext("test-run", t.TempDir())
		step := domain.WorkflowStep{
			ID: StepValidate, Kind: domain.KindValidation,
			Params: map[string]any{"op": "validate"},
		}
		res := p.Registry()[domain.KindValidation](context.Background(), rc, step)
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.FailOrchestration, res.Failure)
	})
}
