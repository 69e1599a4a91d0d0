package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probaah/probaah/internal/cli"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/request"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <request...>",
	Short: "Run a workflow described in plain language",
	Long: `Parses a plain-language request, expands it into a workflow and runs it.

Examples:
  probaah process "replace 50 water molecules with O2 at density 0.0005 in slab.pdb"
  probaah process "replace 100 H2O with nitrogen, density 0.001, in surface.xyz, then analyze the result"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		text := strings.Join(args, " ")
		parsed, err := request.Parse(text)
		if err != nil {
			return clarify(err)
		}

		steps, err := app.BuildSteps(cmd.Context(), parsed)
		if err != nil {
			return clarify(err)
		}

		report, err := app.RunWorkflow(cmd.Context(), text, steps)
		if err != nil {
			return err
		}
		cli.PrintReport(os.Stdout, report)
		exitCode = cli.ExitCode(report)
		return nil
	},
}

// clarify prints a clarification question instead of a bare error.
func clarify(err error) error {
	if hint := domain.HintFor(err); hint != "" {
		return fmt.Errorf("%w\n  %s", err, hint)
	}
	return err
}

func init() {
	rootCmd.AddCommand(processCmd)
}
