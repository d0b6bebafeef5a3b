package main

import (
	"github.com/spf13/cobra"
)

var showPending bool

var showCmd = &cobra.Command{
	Use:   "show <participant>",
	Short: "Print the base snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deltaCmd = &cobra.Command{
	Use:   "delta <participant>",
	Short: "Print the pending delta as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelta,
}

func init() {
	showCmd.Flags().BoolVar(&showPending, "pending", false, "Show the snapshot as it would be after save")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deltaCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx := newContext(cmd)
	load := svc.Snapshot
	if showPending {
		load = svc.Preview
	}
	snapshot, err := load(ctx, userFlag, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), snapshot)
}

func runDelta(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	delta, err := svc.Delta(newContext(cmd), userFlag, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), delta)
}
