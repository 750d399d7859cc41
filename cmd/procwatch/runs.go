package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/observability"
	"github.com/jonathan/procurement-watch/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pull runs, newest first",
	Long: `Lists recent pull runs from the store ledger, which keeps the last 30.
With postgres storage the unbounded run archive is read instead.`,
	RunE: runRuns,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 30, "Maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runsLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd.Context(), cfg, false, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	var (
		runs  []types.RunRecord
		total int
	)
	if archive := ws.archive(); archive != nil {
		runs, err = archive.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return fmt.Errorf("failed to list archived runs: %w", err)
		}
		total, err = archive.CountRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count archived runs: %w", err)
		}
	} else {
		ledger := ws.runner.Snapshot().Store.Runs
		runs, total = latestRuns(ledger, runsLimit), len(ledger)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintRuns(runs, total)
	return nil
}

// latestRuns returns up to limit records of the newest-first ledger
func latestRuns(ledger []types.RunRecord, limit int) []types.RunRecord {
	return ledger[:min(limit, len(ledger))]
}
