package analysis

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
)

// fakeTool writes a shell script that mimics the external plugin.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestAnalyzer(t *testing.T) {
	ctx := context.Background()

	t.Run("missing tool fails without executing", func(t *testing.T) {
		a := NewAnalyzer(filepath.Join(t.TempDir(), "absent"), time.Second)
		res := a.Analyze(ctx, "traj.xyz", t.TempDir())
		assert.Equal(t, domain.StatusFailed, res.Status)
		assert.Equal(t, domain.FailToolNotFound, res.Failure)
		assert.NotEmpty(t, res.Hint)
	})

	t.Run("success produces the report artifact", func(t *testing.T) {
		a := NewAnalyzer(fakeTool(t, "exit 0"), time.Second)
		dir := t.TempDir()
		res := a.Analyze(ctx, "traj.xyz", dir)
		require.Equal(t, domain.StatusSucceeded, res.Status)
		require.Len(t, res.Artifacts, 1)
		assert.Equal(t, domain.ArtifactReport, res.Artifacts[0].Kind)
		assert.Equal(t, filepath.Join(dir, "analysis"), res.Artifacts[0].Path)
	})

	t.Run("nonzero exit carries stderr", func(t *testing.T) {
		a := NewAnalyzer(fakeTool(t, "echo 'bad trajectory' >&2; exit 2"), time.Second)
		res := a.Analyze(ctx, "traj.xyz", t.TempDir())
		assert.Equal(t, domain.FailToolExecution, res.Failure)
		assert.Contains(t, res.Error, "exit code 2")
		assert.Contains(t, res.Diagnostic, "bad trajectory")
	})

	t.Run("timeout", func(t *testing.T) {
		a := NewAnalyzer(fakeTool(t, "sleep 5"), 50*time.Millisecond)
		res := a.Analyze(ctx, "traj.xyz", t.TempDir())
		assert.Equal(t, domain.FailToolExecution, res.Failure)
		assert.Contains(t, res.Error, "timed out")
	})
}

func TestProbe_Concurrent(t *testing.T) {
	probers := map[string]func(context.Context) domain.Availability{
		"analyzer":  NewAnalyzer("auto", time.Second).Probe,
		"presenter": NewPresenter("auto", time.Second).Probe,
	}
	for name, probe := range probers {
		t.Run(name, func(t *testing.T) {
			results := make([]domain.Availability, 8)
			var wg sync.WaitGroup
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = probe(context.Background())
				}(i)
			}
			wg.Wait()

			for _, r := range results[1:] {
				assert.Equal(t, results[0], r)
			}
		})
	}
}

func TestPresenter(t *testing.T) {
	ctx := context.Background()

	t.Run("success produces the presentation artifact", func(t *testing.T) {
		p := NewPresenter(fakeTool(t, "exit 0"), time.Second)
		dir := t.TempDir()
		res := p.Present(ctx, "analysis", "Gas Substitution Results", dir)
		require.Equal(t, domain.StatusSucceeded, res.Status)
		require.Len(t, res.Artifacts, 1)
		assert.Equal(t, domain.ArtifactPresentation, res.Artifacts[0].Kind)
		assert.Equal(t, filepath.Join(dir, "presentation.pptx"), res.Artifacts[0].Path)
	})

	t.Run("missing tool", func(t *testing.T) {
		p := NewPresenter(filepath.Join(t.TempDir(), "absent"), time.Second)
		res := p.Present(ctx, "analysis", "t", t.TempDir())
		assert.Equal(t, domain.FailToolNotFound, res.Failure)
	})
}
