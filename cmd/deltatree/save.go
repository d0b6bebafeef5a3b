package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <participant>",
	Short: "Merge the pending delta into the base snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

var discardCmd = &cobra.Command{
	Use:   "discard <participant>",
	Short: "Archive the pending delta without merging it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscard,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(discardCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	snapshot, err := svc.Save(newContext(cmd), userFlag, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %d documents\n", snapshot.ParticipantID, len(snapshot.Documents))
	return nil
}

func runDiscard(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	archiveID, err := svc.Discard(newContext(cmd), userFlag, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Discarded pending changes (archive %s)\n", archiveID)
	return nil
}
