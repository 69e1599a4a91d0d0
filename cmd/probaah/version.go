package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the probaah version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("probaah", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
