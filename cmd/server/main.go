// Command server runs the donation backend.
//
// Configuration comes from config.yaml (or the file given with -config),
// an optional .env file and DONATIONS_* environment variables; see
// internal/config.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/donation-backend/internal/config"
	"github.com/sakif/donation-backend/internal/payment"
	"github.com/sakif/donation-backend/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	// Until the configured level is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// === 1. CONFIGURATION ===
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	level, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// === 3. PAYMENT PROCESSOR ===
	processor, err := payment.NewOmise(cfg.Payment.PublicKey, cfg.Payment.SecretKey, cfg.Payment.Timeout)
	if err != nil {
		logger.Error("failed to create payment client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. SERVER ===
	srv, err := server.New(cfg, logger, processor)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
