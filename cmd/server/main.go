// Package main is the entry point for the country explorer web server.
//
// main only reads configuration, builds the logger and hands both to
// internal/server; everything else lives in internal packages.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/country-explorer/internal/config"
	"github.com/sakif/country-explorer/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env is optional; real environment variables win over it.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if cfg.JWTSecretGenerated {
		// Tokens issued now stop verifying after a restart.
		logger.Warn("JWT_SECRET not set, using a random secret for this process")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
