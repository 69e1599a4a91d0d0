package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probaah/probaah/internal/cli"
	"github.com/probaah/probaah/internal/tui"
	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/request"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive request loop",
	Long: `Reads requests line by line and runs each as a workflow. Results stay in
the report store, so follow-up requests can refer to them ("analyze the
last run"). Exit with "quit" or Ctrl-D.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println("probaah chat - describe a workflow, or \"quit\" to leave.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "quit", "exit":
				return nil
			}

			parsed, err := request.Parse(line)
			if err != nil {
				printClarification(err)
				continue
			}
			if len(parsed.Intents) == 1 && parsed.Intents[0] == request.IntentStatus {
				printToolStatus(cmd, app)
				continue
			}

			steps, err := app.BuildSteps(cmd.Context(), parsed)
			if err != nil {
				printClarification(err)
				continue
			}
			report, err := app.RunWorkflow(cmd.Context(), line, steps)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			cli.PrintReport(os.Stdout, report)
		}
	},
}

// printClarification keeps the loop going on unclear requests: the failure
// and its hint become the next question to the user.
func printClarification(err error) {
	var failure *domain.Failure
	if errors.As(err, &failure) && failure.Kind == domain.FailNeedsClarification {
		fmt.Printf("I need more detail: %v\n", failure.Err)
		if failure.Hint != "" {
			fmt.Printf("  %s\n", failure.Hint)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func printToolStatus(cmd *cobra.Command, app *cli.App) {
	for _, p := range app.Probers() {
		fmt.Println(tui.ToolLine(p.Name(), p.Probe(cmd.Context())))
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
