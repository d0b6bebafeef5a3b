package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/casework/deltatree/internal/casefile"
)

var applyCmd = &cobra.Command{
	Use:   "apply <participant> <action-file|->",
	Short: "Record an edit in the participant's pending delta",
	Long: `Reads one action as YAML or JSON and records it in the pending delta.
The base snapshot is not touched until save.

Example action:

  kind: updateDocument
  document:
    id: 0d9c...
    name: Intake
    fields:
      - id: fullName
        value: Alex Doe`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[1])
	if err != nil {
		return err
	}
	action, err := casefile.DecodeAction(data)
	if err != nil {
		return err
	}

	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	id, err := svc.Apply(newContext(cmd), userFlag, args[0], action)
	if err != nil {
		return err
	}
	if id != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", action.Kind, id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", action.Kind)
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
