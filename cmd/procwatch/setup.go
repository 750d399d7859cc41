package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/config"
	"github.com/jonathan/procurement-watch/internal/llm"
	"github.com/jonathan/procurement-watch/internal/persist"
	"github.com/jonathan/procurement-watch/internal/scheduler"
	"github.com/jonathan/procurement-watch/internal/server"
)

// Flags shared by every command
var (
	globalConfigPath string
	globalStorage    string
	globalProvider   string
	globalModel      string
	globalVerbose    bool
)

func bindGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&globalConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVarP(&globalStorage, "storage", "s", "", "Store location: file path, sqlite://path, postgres://... or memory: (defaults to PROCWATCH_STORAGE, DATABASE_URL, then "+config.DefaultStorage+")")
	flags.StringVar(&globalProvider, "provider", "", "Backend provider: anthropic or gemini")
	flags.StringVar(&globalModel, "model", "", "Backend model name")
	flags.BoolVarP(&globalVerbose, "verbose", "v", false, "Print detailed debug information")
}

// resolveConfig layers the configuration: config file, flags the user set,
// environment, then defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if globalConfigPath != "" {
		loaded, err := config.LoadConfig(globalConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage = globalStorage
	}
	if flags.Changed("provider") {
		cfg.Provider = globalProvider
	}
	if flags.Changed("model") {
		cfg.Model = globalModel
	}
	if flags.Changed("verbose") {
		cfg.Verbose = globalVerbose
	}

	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Verbose {
		if globalConfigPath != "" {
			log.Printf("[VERBOSE] Loaded config from: %s", globalConfigPath)
		}
		log.Printf("[VERBOSE] Storage: %s, provider: %s", cfg.Storage, cfg.Provider)
	}
	return &cfg, nil
}

// workspace is the state every command operates on
type workspace struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	persister persist.Persister
	runner    *scheduler.Runner
	backend   llm.Backend
}

// openWorkspace loads the store. The backend is only created when withBackend
// is set; read-only commands never need an API key.
func openWorkspace(ctx context.Context, cfg *config.Config, withBackend bool, onProgress scheduler.ProgressCallback) (*workspace, error) {
	p, err := persist.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	st, err := persist.LoadOrInit(ctx, p, nil)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to load store from %s: %w", p.Location(), err)
	}

	ws := &workspace{cfg: cfg, catalog: catalog.Default(), persister: p}

	if withBackend {
		if cfg.APIKey == "" {
			_ = p.Close()
			return nil, fmt.Errorf("an API key is required: set ANTHROPIC_API_KEY or GEMINI_API_KEY, or api_key in the config file")
		}
		backend, err := llm.NewBackend(ctx, cfg.LLMConfig())
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create backend: %w", err)
		}
		ws.backend = backend
	}

	opts := scheduler.DefaultOptions()
	opts.BatchDelay = cfg.BatchDelayDuration()
	opts.Cooldown = cfg.CooldownDuration()
	opts.RateLimitBackoff = cfg.RateLimitBackoffDuration()
	opts.MaxTokens = cfg.MaxTokens
	opts.Verbose = cfg.Verbose
	opts.OnProgress = onProgress
	ws.runner = scheduler.New(ws.catalog, ws.backend, p, st, opts)

	return ws, nil
}

// archive returns the unbounded run archive when the store lives in postgres
func (ws *workspace) archive() server.RunArchive {
	if pg, ok := ws.persister.(*persist.PostgresStore); ok {
		return pg.DB()
	}
	return nil
}

func (ws *workspace) Close() {
	if ws.backend != nil {
		if err := ws.backend.Close(); err != nil {
			log.Printf("[store] closing backend: %v", err)
		}
	}
	if err := ws.persister.Close(); err != nil {
		log.Printf("[store] closing %s: %v", ws.persister.Location(), err)
	}
}
