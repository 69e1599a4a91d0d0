package packmol

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/structure"
)

var region = structure.Box{
	Min: [3]float64{0, 0, 30},
	Max: [3]float64{20, 20, 50},
}

func testParams(dir string) Params {
	return Params{
		Fixed: &structure.MolecularStructure{Atoms: []structure.Atom{
			{Element: "Si", X: 1, Y: 1, Z: 1},
		}},
		Gas:       structure.GasTemplate("O2"),
		GasLabel:  "O2",
		Count:     25,
		Region:    region,
		Tolerance: 2.0,
		Dir:       dir,
	}
}

func TestDeck(t *testing.T) {
	got := Deck("/run/fixed.xyz", "/run/gas_O2.xyz", "/run/packed.xyz", 25, 2.0, region)

	want := `# packmol input generated by probaah
# gas substitution workflow

tolerance 2
filetype xyz
output /run/packed.xyz

# original structure (fixed)
structure /run/fixed.xyz
  number 1
  fixed 0.0 0.0 0.0 0.0 0.0 0.0
end structure

# gas molecules
structure /run/gas_O2.xyz
  number 25
  inside box 0 0 30 20 20 50
end structure
`
	assert.Equal(t, want, got)
}

func TestProbe_Concurrent(t *testing.T) {
	a := New("auto", time.Second)

	results := make([]domain.Availability, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Probe(context.Background())
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestBuild(t *testing.T) {
	a := New("auto", time.Second)
	dir := t.TempDir()

	inv, err := a.Build(testParams(dir))
	require.NoError(t, err)

	assert.Equal(t, "packmol", inv.Adapter)
	assert.Equal(t, dir, inv.Dir)
	assert.FileExists(t, filepath.Join(dir, "fixed.xyz"))
	assert.FileExists(t, filepath.Join(dir, "gas_O2.xyz"))
	assert.FileExists(t, filepath.Join(dir, "packmol.inp"))
	// The deck is fed on stdin as well as written to disk.
	assert.Equal(t, inv.InputPayload, inv.Stdin)
	assert.Contains(t, inv.Stdin, "number 25")
}

func TestBuild_Validation(t *testing.T) {
	a := New("auto", time.Second)
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"missing fixed structure", func(p *Params) { p.Fixed = nil }},
		{"empty gas molecule", func(p *Params) { p.Gas = &structure.MolecularStructure{} }},
		{"zero count", func(p *Params) { p.Count = 0 }},
		{"negative tolerance", func(p *Params) { p.Tolerance = -1 }},
		{"empty region", func(p *Params) { p.Region = structure.Box{} }},
		{"missing scratch dir", func(p *Params) { p.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams(dir)
			tt.mutate(&params)
			_, err := a.Build(params)
			assert.Error(t, err)
		})
	}
}

func TestInterpret(t *testing.T) {
	a := New("auto", time.Second)

	newInv := func(t *testing.T) *domain.ToolInvocation {
		return &domain.ToolInvocation{
			Adapter:   "packmol",
			Dir:       t.TempDir(),
			InputFile: "packmol.inp",
		}
	}

	t.Run("success with output file", func(t *testing.T) {
		inv := newInv(t)
		require.NoError(t, os.WriteFile(filepath.Join(inv.Dir, "packed.xyz"), []byte("2\npacked\nO 0 0 0\nO 0 0 1.21\n"), 0o644))

		res := a.Interpret(inv, domain.RawResult{ExitCode: 0, Stdout: "Success!\n"})
		assert.Equal(t, domain.StatusSucceeded, res.Status)
		require.Len(t, res.Artifacts, 1)
		assert.Equal(t, filepath.Join(inv.Dir, "packed.xyz"), res.Artifacts[0].Path)
	})

	t.Run("imperfect packing despite exit zero", func(t *testing.T) {
		inv := newInv(t)
		res := a.Interpret(inv, domain.RawResult{
			ExitCode: 0,
			Stdout:   "packing...\nENDED WITHOUT PERFECT PACKING\n",
		})
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.FailToolExecution, res.Failure)
		assert.Contains(t, res.Diagnostic, "ENDED WITHOUT PERFECT PACKING")
	})

	t.Run("nonzero exit", func(t *testing.T) {
		inv := newInv(t)
		res := a.Interpret(inv, domain.RawResult{ExitCode: 173, Stderr: "forrtl: severe\n"})
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.FailToolExecution, res.Failure)
		assert.Contains(t, res.Error, "exit code 173")
		assert.Contains(t, res.Diagnostic, "forrtl")
	})

	t.Run("missing output file", func(t *testing.T) {
		inv := newInv(t)
		res := a.Interpret(inv, domain.RawResult{ExitCode: 0})
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Contains(t, res.Error, "no output file")
	})

	t.Run("start failure maps to tool not found", func(t *testing.T) {
		inv := newInv(t)
		res := a.Interpret(inv, domain.RawResult{StartErr: "exec: not found"})
		assert.Equal(t, domain.FailToolNotFound, res.Failure)
		assert.Equal(t, InstallHint, res.Hint)
	})

	t.Run("timeout", func(t *testing.T) {
		inv := newInv(t)
		res := a.Interpret(inv, domain.RawResult{TimedOut: true, Elapsed: 90 * time.Second})
		assert.Equal(t, domain.FailToolExecution, res.Failure)
		assert.Contains(t, res.Error, "timed out")
	})
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c\nd\n", tail("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a\n", tail("a", 5))
	assert.Equal(t, "", tail("", 3))
}
