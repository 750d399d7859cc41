package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/procurement-watch/internal/config"
	"github.com/jonathan/procurement-watch/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the store and starts pulls over REST.

When JWT_SECRET is set, POST and DELETE routes require a bearer token minted with
'procwatch token'. Set require_auth in the config file to refuse to start without one.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	jwtCfg, err := config.OptionalJWTConfig()
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		if cfg.RequireAuth {
			return fmt.Errorf("require_auth is set but JWT_SECRET is not")
		}
		log.Printf("[server] JWT_SECRET not set; mutating routes are open")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(ctx, cfg, true, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	srv, err := server.New(server.Config{
		Port:    cfg.Port,
		Runner:  ws.runner,
		Catalog: ws.catalog,
		Archive: ws.archive(),
		JWT:     jwtCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Printf("[server] signal received, stopping")
		}
		ws.runner.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
