package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/casework/deltatree/internal/render"
)

var (
	exportOutput  string
	exportPending bool
)

var exportCmd = &cobra.Command{
	Use:   "export <participant>",
	Short: "Render the base snapshot as HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportPending, "pending", false, "Include the pending delta")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx := newContext(cmd)
	load := svc.Snapshot
	if exportPending {
		load = svc.Preview
	}
	snapshot, err := load(ctx, userFlag, args[0])
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return render.Snapshot(w, snapshot)
}
