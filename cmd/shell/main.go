package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/cli/projectconfig"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/logger"
	"github.com/nidhal-dev/authfront/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	project, err := projectconfig.LoadFromCurrentDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", projectconfig.ConfigFileName, err)
		os.Exit(1)
	}
	project.Apply(cfg)

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	// Restore tokens and session before any guard runs
	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client state")
	}

	srv, err := server.New(cfg, a, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Str("api", cfg.API.BaseURL()).Msg("Starting authfront shell...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
