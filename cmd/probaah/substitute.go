package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probaah/probaah/internal/cli"
	"github.com/probaah/probaah/pkg/substitution"
)

// substituteCmd represents the substitute command
var substituteCmd = newSubstituteCmd()

func newSubstituteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substitute [file]",
		Short: "Substitute a molecular species with gas molecules",
		Long: `Removes a species from a structure and packs gas molecules into a
density-consistent region above it, producing a combined structure.

Example:
  probaah substitute slab.pdb --remove H2O --add O2 --count 50 --density 0.0005`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			req, err := substitutionRequest(cmd, args)
			if err != nil {
				return err
			}
			if req.OutputPath == "" {
				req.OutputPath = cli.DefaultOutputPath(req.InputPath)
			}
			if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
				req.Interactive = cli.StdinIsTerminal()
			}

			report, err := app.RunWorkflow(cmd.Context(),
				"substitute "+req.Remove+" with "+req.Gas+" in "+req.InputPath,
				app.Pipeline.Plan(req))
			if err != nil {
				return err
			}
			cli.PrintReport(os.Stdout, report)
			exitCode = cli.ExitCode(report)
			return nil
		},
	}

	cmd.Flags().String("input", "", "Source structure file, when not given as an argument")
	cmd.Flags().String("remove", "", "Species to remove, by formula (e.g. H2O)")
	cmd.Flags().String("add", "", "Gas species to pack in (e.g. O2, N2, CO2)")
	cmd.Flags().String("gas", "", "Alias for --add")
	cmd.Flags().Int("count", 0, "Number of gas molecules to place")
	cmd.Flags().Float64("density", 0, "Target gas density in g/cm³")
	cmd.Flags().String("geometry", "", "Geometry override, e.g. gas-box:23x23x23,offset-z:10")
	cmd.Flags().String("output", "", "Output path for the combined structure")
	cmd.Flags().Bool("validate", false, "Validate the result")
	cmd.Flags().Bool("interactive", false, "Inspect the result in the visualizer")
	cmd.Flags().Bool("require-approval", false, "Fail the workflow when validation rejects")

	_ = cmd.MarkFlagRequired("remove")
	_ = cmd.MarkFlagRequired("count")
	_ = cmd.MarkFlagRequired("density")
	return cmd
}

// substitutionRequest assembles the request from the positional file
// argument and the flags. The structure file may come either way; the gas
// species accepts --add or its --gas alias.
func substitutionRequest(cmd *cobra.Command, args []string) (substitution.Request, error) {
	flags := cmd.Flags()
	req := substitution.Request{}

	if len(args) > 0 {
		req.InputPath = args[0]
	} else {
		req.InputPath, _ = flags.GetString("input")
	}
	if req.InputPath == "" {
		return req, fmt.Errorf("a structure file is required, as an argument or via --input")
	}

	req.Remove, _ = flags.GetString("remove")
	req.Gas, _ = flags.GetString("add")
	if req.Gas == "" {
		req.Gas, _ = flags.GetString("gas")
	}
	if req.Gas == "" {
		return req, fmt.Errorf("required flag \"add\" not set")
	}

	req.Count, _ = flags.GetInt("count")
	req.Density, _ = flags.GetFloat64("density")
	req.Geometry, _ = flags.GetString("geometry")
	req.OutputPath, _ = flags.GetString("output")
	req.Validate, _ = flags.GetBool("validate")
	req.RequireApproval, _ = flags.GetBool("require-approval")
	return req, nil
}

func init() {
	rootCmd.AddCommand(substituteCmd)
}
