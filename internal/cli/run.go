package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/probaah/probaah/internal/tui"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/request"
	"github.com/probaah/probaah/pkg/substitution"
)

// BuildSteps expands a parsed request into the workflow step graph:
// substitution first when present, then analysis and presentation chained
// behind it. Requests referring to the last run resolve their inputs from
// the report store before any step is scheduled.
func (a *App) BuildSteps(ctx context.Context, parsed *request.Parsed) ([]domain.WorkflowStep, error) {
	var steps []domain.WorkflowStep
	analysisDeps := []string{}

	if parsed.Substitution != nil {
		sub := *parsed.Substitution
		a.applySubstitutionDefaults(&sub)
		steps = a.Pipeline.Plan(sub)
		analysisDeps = []string{substitution.StepAssemble}
	} else if hasIntent(parsed.Intents, request.IntentValidate) {
		path := parsed.ValidatePath
		if path == "" {
			var err error
			path, err = a.LastRunArtifact(ctx, "final-structure")
			if err != nil {
				return nil, domain.NewFailure(domain.FailNeedsClarification, err,
					"name a structure file to validate, e.g. \"validate packed.xyz\"")
			}
		}
		steps = append(steps, domain.WorkflowStep{
			ID:   substitution.StepValidate,
			Kind: domain.KindValidation,
			Params: map[string]any{
				"input_path":  path,
				"interactive": a.Config.Substitution.Interactive && StdinIsTerminal(),
			},
			Outputs: []string{"validation-previews"},
		})
	}

	if parsed.Analyze {
		analyzeStep := domain.WorkflowStep{
			ID:        "analyze-result",
			Kind:      domain.KindAnalysis,
			DependsOn: analysisDeps,
			Outputs:   []string{"analysis-report"},
		}
		if parsed.Substitution == nil {
			input, err := a.LastRunArtifact(ctx, "final-structure")
			if err != nil {
				return nil, domain.NewFailure(domain.FailNeedsClarification, err,
					"run a substitution first, or name a structure file to analyze")
			}
			analyzeStep.Params = map[string]any{"input_path": input}
		}
		steps = append(steps, analyzeStep)
	}

	if parsed.Present {
		presentStep := domain.WorkflowStep{
			ID:      "present-result",
			Kind:    domain.KindPresentation,
			Outputs: []string{"presentation"},
			Params:  map[string]any{"title": parsed.Text},
		}
		switch {
		case parsed.Analyze:
			presentStep.DependsOn = []string{"analyze-result"}
		case parsed.Substitution != nil:
			presentStep.DependsOn = []string{substitution.StepAssemble}
		default:
			dir, err := a.LastRunArtifact(ctx, "analysis-report")
			if err != nil {
				return nil, domain.NewFailure(domain.FailNeedsClarification, err,
					"run an analysis first, then ask for slides")
			}
			presentStep.Params["analysis_dir"] = dir
		}
		steps = append(steps, presentStep)
	}

	if len(steps) == 0 {
		return nil, domain.Failf(domain.FailNeedsClarification,
			"request %q resolved to no executable steps", parsed.Text)
	}
	return steps, nil
}

func hasIntent(intents []request.Intent, want request.Intent) bool {
	for _, i := range intents {
		if i == want {
			return true
		}
	}
	return false
}

// applySubstitutionDefaults fills config-driven fields the parser cannot
// know, without overriding anything the request stated.
func (a *App) applySubstitutionDefaults(sub *substitution.Request) {
	if sub.OutputPath == "" && sub.InputPath != "" {
		sub.OutputPath = DefaultOutputPath(sub.InputPath)
	}
	if a.Config.Substitution.RequireApproval {
		sub.RequireApproval = true
	}
	if sub.Validate && a.Config.Substitution.Interactive && StdinIsTerminal() {
		sub.Interactive = true
	}
}

// StdinIsTerminal reports whether an operator is attached.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PrintReport writes the rendered report. Markdown goes through glamour on
// terminals and stays plain otherwise.
func PrintReport(w io.Writer, report *domain.WorkflowReport) {
	markdown := tui.ReportMarkdown(report)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if rendered, err := tui.NewRenderer()(markdown); err == nil {
			fmt.Fprint(w, rendered)
			fmt.Fprintln(w, tui.StatusLine(report))
			return
		}
	}
	fmt.Fprint(w, markdown)
}

// ExitCode maps a report onto the process exit status.
func ExitCode(report *domain.WorkflowReport) int {
	if report.Success {
		return 0
	}
	return 1
}
