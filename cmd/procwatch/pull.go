package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/observability"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Query every source once and store new notices",
	Long: `Runs one pull over every batch of sources, printing progress as batches finish.

A pull is refused while the cooldown after the previous pull is running or the backend
has rate limited us; the command then exits non-zero and prints when to retry.
Ctrl-C stops the run after saving what was collected.`,
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	ws, err := openWorkspace(ctx, cfg, true, printer.PrintProgress)
	if err != nil {
		return err
	}
	defer ws.Close()

	rec, err := ws.runner.RunAll(ctx)
	if err != nil {
		var blocked *gate.BlockedError
		if errors.As(err, &blocked) {
			printer.PrintBlocked(blocked, time.Now())
		}
		return err
	}

	printer.PrintRunSummary(rec)
	if obs := ws.runner.Snapshot(); obs.SaveError != "" {
		return fmt.Errorf("run finished but the store was not saved: %s", obs.SaveError)
	}
	if rec.Aborted && errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("pull interrupted")
	}
	return nil
}
