// Package main provides the entry point for the Sitemap Extractor server
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/sitemap-extractor/internal/api"
	"github.com/Caia-Tech/sitemap-extractor/internal/config"
	"github.com/Caia-Tech/sitemap-extractor/internal/fetch"
	"github.com/Caia-Tech/sitemap-extractor/pkg/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := logging.SetupLogger(&logging.LogConfig{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputFile: cfg.LogFile,
		Console:    true,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	// No capturer: the browser fallback needs someone at the terminal.
	fetcher := fetch.NewFetcher(&fetch.Config{
		MaxAttempts:       cfg.FetchAttempts,
		Timeout:           cfg.FetchTimeout,
		BackoffMin:        cfg.BackoffMin,
		BackoffMax:        cfg.BackoffMax,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxBodySize:       cfg.MaxBodyBytes,
	}, nil, nil)

	h := api.NewHandlers(fetcher, cfg.MaxDepth)
	app := api.NewApp(h, getEnv("CORS_ORIGINS", "*"))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Starting Sitemap Extractor server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
