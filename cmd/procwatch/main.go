// Package main provides the procwatch CLI: it pulls procurement notices from
// the configured sources, lists what it has stored and serves the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Procurement notice watcher",
	Long: `procwatch queries public procurement portals through a search-capable LLM backend,
deduplicates the notices it finds and keeps them in a local store.

Configuration can be loaded from a JSON file using --config. Command-line flags override config file values.`,
	SilenceUsage: true,
}

func init() {
	bindGlobalFlags(rootCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
