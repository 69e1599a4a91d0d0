package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/domain"
)

func TestExecute(t *testing.T) {
	e := NewExecutor(5 * time.Second)
	ctx := context.Background()

	t.Run("captures stdout and exit code", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "sh",
			Args:       []string{"-c", "echo hello; echo oops >&2"},
		}, 0)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Equal(t, "oops\n", res.Stderr)
		assert.False(t, res.TimedOut)
		assert.Empty(t, res.StartErr)
	})

	t.Run("nonzero exit", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "sh",
			Args:       []string{"-c", "exit 3"},
		}, 0)
		assert.Equal(t, 3, res.ExitCode)
	})

	t.Run("feeds stdin", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "cat",
			Stdin:      "tolerance 2.0\n",
		}, 0)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "tolerance 2.0\n", res.Stdout)
	})

	t.Run("runs in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "pwd",
			Dir:        dir,
		}, 0)
		assert.Equal(t, 0, res.ExitCode)
		// Resolve symlinks: on some systems TempDir sits behind one.
		want, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(filepath.Clean(res.Stdout[:len(res.Stdout)-1]))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("timeout is classified", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "sleep",
			Args:       []string{"5"},
		}, 50*time.Millisecond)
		assert.True(t, res.TimedOut)
		assert.Equal(t, -1, res.ExitCode)
	})

	t.Run("missing binary reports a start error", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: filepath.Join(t.TempDir(), "no-such-tool"),
		}, 0)
		assert.Equal(t, -1, res.ExitCode)
		assert.NotEmpty(t, res.StartErr)
		assert.False(t, res.TimedOut)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		res := e.Execute(canceled, domain.ToolInvocation{
			Executable: "sleep",
			Args:       []string{"5"},
		}, 0)
		assert.Equal(t, -1, res.ExitCode)
		assert.False(t, res.TimedOut)
	})

	t.Run("sets environment variables", func(t *testing.T) {
		res := e.Execute(ctx, domain.ToolInvocation{
			Executable: "sh",
			Args:       []string{"-c", "echo $PROBAAH_TEST_VAR"},
			Env:        map[string]string{"PROBAAH_TEST_VAR": "42"},
		}, 0)
		assert.Equal(t, "42\n", res.Stdout)
	})
}

func TestLaunch(t *testing.T) {
	e := NewExecutor(5 * time.Second)

	t.Run("stop kills a long-lived process", func(t *testing.T) {
		launched, err := e.Launch(context.Background(), domain.ToolInvocation{
			Executable: "sleep",
			Args:       []string{"60"},
		})
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			launched.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not return")
		}
	})

	t.Run("missing binary fails to start", func(t *testing.T) {
		_, err := e.Launch(context.Background(), domain.ToolInvocation{
			Executable: filepath.Join(t.TempDir(), "absent"),
		})
		assert.Error(t, err)
	})
}

func TestFindExecutable(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "mytool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	t.Run("explicit path", func(t *testing.T) {
		av := FindExecutable(tool, "mytool", nil, "hint")
		assert.True(t, av.Available)
		assert.Equal(t, tool, av.Path)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		av := FindExecutable(filepath.Join(dir, "absent"), "mytool", nil, "install it")
		assert.False(t, av.Available)
		assert.Equal(t, "install it", av.Hint)
		assert.Contains(t, av.Reason, "does not exist")
	})

	t.Run("auto searches candidates", func(t *testing.T) {
		av := FindExecutable("auto", "definitely-not-on-path", []string{tool}, "hint")
		assert.True(t, av.Available)
		assert.Equal(t, tool, av.Path)
	})

	t.Run("auto falls through to PATH", func(t *testing.T) {
		av := FindExecutable("", "sh", nil, "hint")
		assert.True(t, av.Available)
		assert.NotEmpty(t, av.Path)
	})

	t.Run("nothing found", func(t *testing.T) {
		av := FindExecutable("auto", "definitely-not-on-path", []string{filepath.Join(dir, "nope")}, "go install it")
		assert.False(t, av.Available)
		assert.Equal(t, "go install it", av.Hint)
	})

	t.Run("candidate that is a directory is skipped", func(t *testing.T) {
		av := FindExecutable("auto", "definitely-not-on-path", []string{dir}, "hint")
		assert.False(t, av.Available)
	})
}
