package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probaah/probaah/internal/cli"
	"github.com/probaah/probaah/pkg/adapters/viamd"
	"github.com/probaah/probaah/pkg/structure"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <structure-file...>",
	Short: "Validate structure files",
	Long: `Runs validation on one or more structure files: preview renderings plus
either automated geometric checks or interactive inspection in the
visualizer. Exits non-zero when any file is rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		interactive, _ := cmd.Flags().GetBool("interactive")
		previewDir, _ := cmd.Flags().GetString("previews")

		rejected := 0
		for _, path := range args {
			s, err := structure.Parse(path, "")
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
				rejected++
				continue
			}

			dir := previewDir
			if dir != "" && len(args) > 1 {
				dir = filepath.Join(dir, filepath.Base(path))
			}
			report, err := app.Validator.Validate(cmd.Context(), path, s, viamd.Options{
				Interactive: interactive && cli.StdinIsTerminal(),
				Dir:         dir,
			})
			if err != nil {
				return err
			}

			if report.Approved {
				fmt.Printf("✓ %s: approved (%s, %d atoms)\n", path, report.Mode, s.Len())
			} else {
				rejected++
				fmt.Printf("✗ %s: rejected (%s)\n", path, report.Mode)
				for _, issue := range report.Issues {
					fmt.Printf("    %s\n", issue)
				}
			}
			for _, p := range report.Previews {
				fmt.Printf("    preview: %s\n", p)
			}
		}

		if rejected > 0 {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("interactive", false, "Inspect each structure in the visualizer")
	validateCmd.Flags().String("previews", "", "Directory to write preview renderings into")
}
