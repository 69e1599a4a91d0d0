package workflow

import (
	"sync"

	"github.com/probaah/probaah/pkg/domain"
)

// RunContext is the shared state visible to step runners during one run.
// Steps communicate through named artifacts and values; the maps are safe
// for concurrent access because independent steps may run in parallel.
type RunContext struct {
	// RunID identifies the run, also used for scratch naming and reports.
	RunID string
	// ScratchDir is the run's working directory. Step runners create their
	// own subdirectories under it.
	ScratchDir string

	mu        sync.RWMutex
	artifacts map[string]domain.Artifact
	values    map[string]any
}

// NewRunContext creates a run context. The orchestrator does this for every
// run; tests exercising step runners directly may build their own.
func NewRunContext(runID, scratchDir string) *RunContext {
	return &RunContext{
		RunID:      runID,
		ScratchDir: scratchDir,
		artifacts:  make(map[string]domain.Artifact),
		values:     make(map[string]any),
	}
}

// PutArtifact registers a produced artifact under its ID.
func (rc *RunContext) PutArtifact(a domain.Artifact) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.artifacts[a.ID] = a
}

// Artifact looks up an artifact by ID.
func (rc *RunContext) Artifact(id string) (domain.Artifact, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	a, ok := rc.artifacts[id]
	return a, ok
}

// PutValue stores an in-memory value (for example a parsed structure) for
// downstream steps.
func (rc *RunContext) PutValue(key string, v any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.values[key] = v
}

// Value looks up an in-memory value by key.
func (rc *RunContext) Value(key string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.values[key]
	return v, ok
}
