package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies step failures. The kind decides retry behavior and
// the remediation hint shown to the user.
type FailureKind string

const (
	// FailToolNotFound: executable or resource absent. Hard stop, no retry.
	FailToolNotFound FailureKind = "tool_not_found"
	// FailToolExecution: nonzero exit or timeout. Retryable per policy.
	FailToolExecution FailureKind = "tool_execution_failed"
	// FailParse: malformed structure input. Never retried.
	FailParse FailureKind = "parse_error"
	// FailGeometry: inconsistent density/count/box. Never retried.
	FailGeometry FailureKind = "geometry_infeasible"
	// FailValidationRejected: validator rejected the structure. Advisory
	// unless the caller required approval.
	FailValidationRejected FailureKind = "validation_rejected"
	// FailNeedsClarification: the request parser could not resolve a request.
	FailNeedsClarification FailureKind = "needs_clarification"
	// FailOrchestration: unrecoverable internal inconsistency (e.g. a cyclic
	// dependency). Fatal for the whole run.
	FailOrchestration FailureKind = "orchestration_abort"
)

// Retryable reports whether a failure of this kind may be re-attempted.
func (k FailureKind) Retryable() bool {
	return k == FailToolExecution
}

// Failure is a classified step error carrying a user-facing remediation hint.
type Failure struct {
	Kind FailureKind
	Err  error
	Hint string
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err with a kind and an optional hint.
func NewFailure(kind FailureKind, err error, hint string) *Failure {
	return &Failure{Kind: kind, Err: err, Hint: hint}
}

// Failf builds a classified failure from a format string.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ClassifyErr extracts the failure kind from err, defaulting to
// FailToolExecution for unclassified errors so that unknown breakage stays
// retryable rather than silently fatal.
func ClassifyErr(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailToolExecution
}

// HintFor returns the remediation hint attached to err, if any.
func HintFor(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Hint
	}
	return ""
}

// ErrRunNotFound is returned when a workflow report ID cannot be found in
// the report store.
var ErrRunNotFound = errors.New("workflow run not found")
