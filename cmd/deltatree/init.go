package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init <participant>",
	Short: "Create a participant with an empty base snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Display name of the save file (default: participant id)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	name := initName
	if name == "" {
		name = args[0]
	}
	snapshot, err := svc.CreateParticipant(newContext(cmd), userFlag, args[0], name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created participant %s (saved %s)\n", snapshot.ParticipantID, snapshot.SaveFileTimestamp.Format("2006-01-02 15:04:05Z07:00"))
	return nil
}
