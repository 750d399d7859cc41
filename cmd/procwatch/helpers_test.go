package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/procurement-watch/internal/persist"
	"github.com/jonathan/procurement-watch/internal/store"
)

// resetFlags restores every flag of the command tree to its default so runs
// within one test binary do not leak into each other
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI in-process and returns what it printed
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// isolateEnv clears the variables that would redirect storage or supply keys
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PROCWATCH_STORAGE", "DATABASE_URL", "PROCWATCH_PROVIDER", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "JWT_SECRET", "JWT_EXPIRATION_HOURS", "JWT_ISSUER"} {
		t.Setenv(key, "")
	}
}

// seedStore writes st to a fresh JSON store file and returns its path
func seedStore(t *testing.T, st *store.Store) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, persist.NewFileStore(path).Save(context.Background(), st))
	return path
}

func loadStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := persist.NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	return st
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// getBinaryPath returns the path to the procwatch binary for testing
func getBinaryPath(t *testing.T) string {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "procwatch")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'make build'", binaryPath)
	}
	return binaryPath
}
