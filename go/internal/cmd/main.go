package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sevahub/templeauction/go/internal/config"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg.Log)

	log.Info().
		Str("api", cfg.API.BaseURL).
		Str("transport", cfg.Realtime.Transport).
		Str("team_id", cfg.Viewer.TeamID).
		Str("addr", cfg.Viewer.Addr).
		Msg("starting temple auction viewer")

	services := setupServices(cfg)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.Session.Start(ctx)

	if err := services.Viewer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("viewer server failed")
	}

	log.Info().Msg("shutting down")
	services.Session.Close()
	log.Info().Msg("temple auction viewer shutdown complete")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
