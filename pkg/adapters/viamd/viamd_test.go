package viamd

import (
	"context"
	"image/png"
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

func o2Pair(separation float64) *structure.MolecularStructure {
	return &structure.MolecularStructure{Atoms: []structure.Atom{
		{Element: "O", X: 0, Y: 0, Z: 0},
		{Element: "O", X: separation, Y: 0, Z: 0},
	}}
}

func TestValidate_AutomatedChecks(t *testing.T) {
	v := New("auto", time.Second)
	ctx := context.Background()

	t.Run("well separated atoms pass", func(t *testing.T) {
		report, err := v.Validate(ctx, "packed.xyz", o2Pair(1.21), Options{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.True(t, report.Approved)
		assert.Equal(t, ModeAutomated, report.Mode)
		assert.Empty(t, report.Issues)
		assert.InDelta(t, 1.21, report.Checks["min_distance"], 1e-9)
	})

	t.Run("overlapping atoms rejected", func(t *testing.T) {
		report, err := v.Validate(ctx, "packed.xyz", o2Pair(0.1), Options{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.False(t, report.Approved)
		require.NotEmpty(t, report.Issues)
		assert.Contains(t, report.Issues[0], "atoms too close")
	})

	t.Run("atom count mismatch rejected", func(t *testing.T) {
		report, err := v.Validate(ctx, "packed.xyz", o2Pair(1.21), Options{
			ExpectedAtoms: 5,
			Dir:           t.TempDir(),
		})
		require.NoError(t, err)
		assert.False(t, report.Approved)
		assert.Contains(t, report.Issues[0], "does not match expected")
	})

	t.Run("single atom skips the distance check", func(t *testing.T) {
		s := &structure.MolecularStructure{Atoms: []structure.Atom{{Element: "O"}}}
		report, err := v.Validate(ctx, "lone.xyz", s, Options{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.True(t, report.Approved)
	})
}

func TestValidate_InteractiveFallsBackWhenUnavailable(t *testing.T) {
	// Point the executable at a path that does not exist so Probe fails and
	// the automated checks run instead.
	v := New(filepath.Join(t.TempDir(), "viamd"), time.Second)

	report, err := v.Validate(context.Background(), "packed.xyz", o2Pair(1.21), Options{
		Interactive: true,
		Dir:         t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, ModeAutomated, report.Mode)
	assert.True(t, report.Approved)
}

func TestProbe_Concurrent(t *testing.T) {
	v := New("auto", time.Second)

	results := make([]domain.Availability, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Probe(context.Background())
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestRenderPreviews(t *testing.T) {
	t.Run("writes one image per view", func(t *testing.T) {
		dir := t.TempDir()
		paths, err := RenderPreviews(o2Pair(1.21), dir)
		require.NoError(t, err)
		require.Len(t, paths, 3)

		for _, p := range paths {
			f, err := os.Open(p)
			require.NoError(t, err)
			img, err := png.Decode(f)
			f.Close()
			require.NoError(t, err, p)
			assert.Equal(t, previewSize, img.Bounds().Dx())
		}
		assert.Contains(t, paths[0], "preview_front.png")
	})

	t.Run("nothing to render", func(t *testing.T) {
		paths, err := RenderPreviews(&structure.MolecularStructure{}, t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, paths)

		paths, err = RenderPreviews(o2Pair(1.21), "")
		require.NoError(t, err)
		assert.Nil(t, paths)
	})
}
