package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/observability"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources grouped by batch with their last scan time",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd.Context(), cfg, false, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	observability.NewPrinter(cmd.OutOrStdout()).PrintSources(ws.catalog, ws.runner.Snapshot().Store.LastScannedAt)
	return nil
}
