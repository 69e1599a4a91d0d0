// Package tui renders workflow reports for the terminal: a markdown summary
// through glamour when stdout is a terminal, plain text otherwise.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/probaah/probaah/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// statusGlyphs map step outcomes to their report markers.
var statusGlyphs = map[domain.StepStatus]string{
	domain.StatusSucceeded: "✓",
	domain.StatusFailed:    "✗",
	domain.StatusSkipped:   "⤳",
}

// ReportMarkdown renders a workflow report as markdown.
func ReportMarkdown(report *domain.WorkflowReport) string {
	var b strings.Builder

	outcome := "succeeded"
	if !report.Success {
		outcome = "failed"
	}
	fmt.Fprintf(&b, "# Workflow %s\n\n", outcome)
	if report.Request != "" {
		fmt.Fprintf(&b, "> %s\n\n", report.Request)
	}
	fmt.Fprintf(&b, "Run `%s`, %d steps, %s.\n\n", report.RunID, len(report.Steps), report.Elapsed.Round(timeUnit(report)))

	for _, step := range report.Steps {
		glyph, ok := statusGlyphs[step.Status]
		if !ok {
			glyph = "•"
		}
		fmt.Fprintf(&b, "- %s **%s** (%s)", glyph, step.StepID, step.Status)
		if step.Attempts > 1 {
			fmt.Fprintf(&b, " after %d attempts", step.Attempts)
		}
		b.WriteString("\n")
		if step.Error != "" {
			fmt.Fprintf(&b, "  - error: %s\n", step.Error)
		}
		if step.Hint != "" {
			fmt.Fprintf(&b, "  - hint: %s\n", step.Hint)
		}
		if step.Diagnostic != "" {
			fmt.Fprintf(&b, "  - %s\n", step.Diagnostic)
		}
		for _, a := range step.Artifacts {
			if a.Path != "" {
				fmt.Fprintf(&b, "  - %s: `%s`\n", a.Kind, a.Path)
			}
			for _, p := range a.Paths {
				fmt.Fprintf(&b, "  - %s: `%s`\n", a.Kind, p)
			}
		}
	}

	if report.ScratchDir != "" {
		fmt.Fprintf(&b, "\nWorking files: `%s`\n", report.ScratchDir)
	}
	return b.String()
}

// StatusLine renders a compact colored one-liner for the run outcome.
func StatusLine(report *domain.WorkflowReport) string {
	p := termenv.ColorProfile()
	if report.Success {
		return termenv.String("workflow succeeded").Foreground(p.Color("#22c55e")).Bold().String()
	}
	return termenv.String("workflow failed").Foreground(p.Color("#ef4444")).Bold().String()
}

// ToolLine renders one tool availability row for the status command.
func ToolLine(name string, av domain.Availability) string {
	p := termenv.ColorProfile()
	if av.Available {
		mark := termenv.String("✓").Foreground(p.Color("#22c55e")).String()
		return fmt.Sprintf("%s %-20s %s", mark, name, av.Path)
	}
	mark := termenv.String("✗").Foreground(p.Color("#ef4444")).String()
	line := fmt.Sprintf("%s %-20s %s", mark, name, av.Reason)
	if av.Hint != "" {
		line += "\n    " + av.Hint
	}
	return line
}

func timeUnit(report *domain.WorkflowReport) time.Duration {
	if report.Elapsed > time.Minute {
		return time.Second
	}
	return time.Millisecond
}
