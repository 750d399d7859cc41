package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store totals, the last run and when the next pull may start",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd.Context(), cfg, false, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	observability.NewPrinter(cmd.OutOrStdout()).PrintStatus(ws.runner.Snapshot(), time.Now())
	return nil
}
