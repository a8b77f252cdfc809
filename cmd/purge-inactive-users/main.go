// Command purge-inactive-users deletes Port users that are status-inactive
// and have had no activity within the configured threshold, backing each one
// up to a zip archive first. It runs to completion once and exits.
//
// Note: entities created by a deleted user remain in Port; they are not
// cleaned up by this job.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bgilleran-port/port-tsm-scripts/internal/backup"
	"github.com/bgilleran-port/port-tsm-scripts/internal/classify"
	"github.com/bgilleran-port/port-tsm-scripts/internal/config"
	"github.com/bgilleran-port/port-tsm-scripts/internal/metrics"
	"github.com/bgilleran-port/port-tsm-scripts/internal/port"
	"github.com/bgilleran-port/port-tsm-scripts/internal/purge"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Shell-exported variables win over the .env file.
	config.LoadDotEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().
		Str("api_url", cfg.PortAPIURL).
		Str("blueprint", cfg.Blueprint).
		Int("days_threshold", cfg.DaysThreshold).
		Bool("dry_run", cfg.DryRun).
		Bool("metrics_enabled", cfg.MetricsEnabled()).
		Msg("starting purge job")

	client := port.NewClient(cfg.PortAPIURL, cfg.Blueprint, cfg.HTTPTimeout, logger)
	classifier := classify.New(cfg.DaysThreshold, logger)
	store := backup.NewStore(cfg.BackupDir, logger)

	var m *metrics.RunMetrics
	if cfg.MetricsEnabled() {
		m = metrics.New()
	}

	runner := purge.NewRunner(cfg, client, classifier, store, m, logger)
	summary, err := runner.Run(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("purge run aborted")
	}

	logger.Info().
		Int("removed", len(summary.Removed)).
		Int("failed", len(summary.Failed)).
		Msg("done")
}
