package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probaah/probaah/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "probaah",
	Short: "Probaah orchestrates computational chemistry workflows",
	Long: `Probaah drives multi-step molecular workflows: substitute gas molecules
into structures, validate the result, analyze trajectories and produce
presentations - each step delegated to the matching external tool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCode is set by commands that finish with a non-zero status. It is
// applied in main after every deferred cleanup has run; commands never call
// os.Exit themselves.
var exitCode int

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
}

// newApp builds the application from the persistent --config flag.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	return cli.NewApp(configPath, os.Stdin, os.Stdout)
}
