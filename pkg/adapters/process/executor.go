// Package process runs external tools with hard timeouts and captured
// output. The specific adapters (packmol, viamd, analysis) build on the
// Executor here; none of them touch os/exec directly.
package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/probaah/probaah/pkg/domain"
)

// Executor runs resolved tool invocations.
type Executor struct {
	// DefaultTimeout applies when Execute is called with a zero timeout.
	DefaultTimeout time.Duration
}

// NewExecutor creates an executor with the given default timeout.
func NewExecutor(defaultTimeout time.Duration) *Executor {
	return &Executor{DefaultTimeout: defaultTimeout}
}

// Execute runs the invocation. It never returns an error: every outcome,
// including a missing binary or a timeout, is encoded in the RawResult so
// the adapter's Interpret step can classify it.
func (e *Executor) Execute(ctx context.Context, inv domain.ToolInvocation, timeout time.Duration) domain.RawResult {
	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		env := cmd.Environ()
		for k, v := range inv.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := domain.RawResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	switch {
	case err == nil:
		result.ExitCode = 0
	case ctx.Err() != nil:
		result.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		result.ExitCode = -1
		if !result.TimedOut {
			result.StartErr = "canceled"
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.StartErr = err.Error()
		}
	}
	return result
}

// Launched is a handle on a long-lived process started with Launch.
type Launched struct {
	cmd *exec.Cmd
}

// Stop kills the process and reaps it. Safe to call after the process has
// already exited.
func (l *Launched) Stop() {
	if l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
	}
	_ = l.cmd.Wait()
}

// Launch starts an invocation without waiting for it to finish. Interactive
// tools that stay open while the operator works go through here; batch
// invocations use Execute.
func (e *Executor) Launch(ctx context.Context, inv domain.ToolInvocation) (*Launched, error) {
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = inv.Dir
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Launched{cmd: cmd}, nil
}

// FindExecutable resolves a tool binary. An explicit path (anything other
// than "auto" or empty) is trusted as-is after an existence check; otherwise
// the candidates and then PATH are searched. The result carries the install
// hint when nothing is found.
func FindExecutable(explicit, name string, candidates []string, hint string) domain.Availability {
	if explicit != "" && explicit != "auto" {
		if expanded := expandHome(explicit); fileExists(expanded) {
			return domain.Availability{Available: true, Path: expanded}
		}
		return domain.Unavailable("configured path "+explicit+" does not exist", hint)
	}
	for _, c := range candidates {
		if expanded := expandHome(c); fileExists(expanded) {
			return domain.Availability{Available: true, Path: expanded}
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return domain.Availability{Available: true, Path: path}
	}
	return domain.Unavailable(name+" not found in PATH or common locations", hint)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
