package main

import (
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which external tools are available",
	Long:  `Probes every tool adapter and reports the resolved executable paths and install hints for anything missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		printToolStatus(cmd, app)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
