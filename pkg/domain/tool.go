package domain

import "time"

// Availability is the result of probing an external tool. Probe never
// errors; absence is a value, not an exception.
type Availability struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Reason    string `json:"reason,omitempty"`
	// Hint carries install instructions surfaced when a step fails with
	// FailToolNotFound.
	Hint string `json:"hint,omitempty"`
}

// Unavailable builds a negative probe result.
func Unavailable(reason, hint string) Availability {
	return Availability{Available: false, Reason: reason, Hint: hint}
}

// ToolInvocation is a fully resolved external tool call: the executable, its
// arguments, and the generated input payload (if the tool reads a deck or
// input file rather than flags).
type ToolInvocation struct {
	Adapter    string            `json:"adapter"`
	Executable string            `json:"executable"`
	Args       []string          `json:"args,omitempty"`
	Dir        string            `json:"dir,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	// InputFile and InputPayload describe the generated input deck, when one
	// was written before execution.
	InputFile    string `json:"input_file,omitempty"`
	InputPayload string `json:"input_payload,omitempty"`
	// Stdin is streamed to the process when set.
	Stdin string `json:"stdin,omitempty"`
}

// RawResult captures what actually happened when an invocation ran.
type RawResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Elapsed  time.Duration `json:"elapsed"`
	TimedOut bool          `json:"timed_out"`
	// StartErr is set when the process could not be started at all.
	StartErr string `json:"start_err,omitempty"`
}

// Ok reports plain process success. Adapters layer tool-specific success
// markers on top of this in Interpret.
func (r RawResult) Ok() bool {
	return r.StartErr == "" && !r.TimedOut && r.ExitCode == 0
}
