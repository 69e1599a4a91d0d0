package domain

import "time"

// ArtifactKind tags what a produced file is.
type ArtifactKind string

const (
	ArtifactStructure    ArtifactKind = "structure"
	ArtifactImageSet     ArtifactKind = "image_set"
	ArtifactReport       ArtifactKind = "report"
	ArtifactPresentation ArtifactKind = "presentation"
)

// Artifact is a file produced by a step and consumed by later steps.
type Artifact struct {
	ID   string       `json:"id"`
	Kind ArtifactKind `json:"kind"`
	Path string       `json:"path"`
	// Paths is set instead of Path for multi-file artifacts (image sets).
	Paths []string `json:"paths,omitempty"`
}

// StepResult records the terminal outcome of one workflow step.
type StepResult struct {
	StepID    string      `json:"step_id"`
	Kind      string      `json:"kind"`
	Status    StepStatus  `json:"status"`
	Artifacts []Artifact  `json:"artifacts,omitempty"`
	Failure   FailureKind `json:"failure,omitempty"`
	Error     string      `json:"error,omitempty"`
	Hint      string      `json:"hint,omitempty"`
	// Diagnostic is free-form text for the user (tool output excerpts,
	// validation feedback, substitution statistics).
	Diagnostic string        `json:"diagnostic,omitempty"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
}

// WorkflowReport is the ordered record of all step results for one run.
// It is immutable once the orchestrator completes a request.
type WorkflowReport struct {
	RunID      string        `json:"run_id"`
	Request    string        `json:"request,omitempty"`
	Steps      []StepResult  `json:"steps"`
	Success    bool          `json:"success"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`
	ScratchDir string        `json:"scratch_dir,omitempty"`
}

// Result returns the StepResult for a step ID, or nil.
func (r *WorkflowReport) Result(stepID string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].StepID == stepID {
			return &r.Steps[i]
		}
	}
	return nil
}

// Artifact returns the named artifact from any step result, or nil.
func (r *WorkflowReport) Artifact(id string) *Artifact {
	for i := range r.Steps {
		for j := range r.Steps[i].Artifacts {
			if r.Steps[i].Artifacts[j].ID == id {
				return &r.Steps[i].Artifacts[j]
			}
		}
	}
	return nil
}
