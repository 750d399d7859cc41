package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored notice and run record",
	Long:  `Empties the store, including the run ledger and the cooldown timestamps. Asks for confirmation unless --yes is given.`,
	RunE:  runClear,
}

var clearYes bool

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd.Context(), cfg, false, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	out := cmd.OutOrStdout()
	if !clearYes {
		count := len(ws.runner.Snapshot().Store.Notices)
		_, _ = fmt.Fprintf(out, "Delete %d notices from %s? [y/N] ", count, ws.persister.Location())
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			_, _ = fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := ws.runner.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Cleared %s\n", ws.persister.Location())
	return nil
}
