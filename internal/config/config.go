// Package config loads purge-job configuration from the environment and an
// optional local .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	perrors "github.com/bgilleran-port/port-tsm-scripts/internal/errors"
)

// Config holds all job configuration loaded from environment variables.
type Config struct {
	// Port API
	PortAPIURL       string `envconfig:"PORT_API_URL" default:"https://api.getport.io"`
	PortClientID     string `envconfig:"PORT_CLIENT_ID"`
	PortClientSecret string `envconfig:"PORT_CLIENT_SECRET"`
	Blueprint        string `envconfig:"PORT_BLUEPRINT" default:"_user"`

	// Purge behavior
	DaysThreshold int    `envconfig:"DAYS_THRESHOLD" default:"30"`
	BackupDir     string `envconfig:"BACKUP_DIR" default:"user_backups"`
	DryRun        bool   `envconfig:"DRY_RUN" default:"false"`

	// General
	Environment string        `envconfig:"ENVIRONMENT" default:"production"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// Metrics (optional — empty disables the push)
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already present in the process environment are never overridden
// (godotenv default), so shell-exported credentials take priority over the
// file. Logs where credentials came from so a stale shell export is easy to
// spot.
func LoadDotEnv(logger zerolog.Logger) {
	idSetBefore := os.Getenv("PORT_CLIENT_ID") != ""
	secretSetBefore := os.Getenv("PORT_CLIENT_SECRET") != ""

	if _, err := os.Stat(".env"); err != nil {
		logger.Debug().Msg("no .env file found, using process environment only")
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("failed to load .env file")
		return
	}

	source := ".env file"
	if idSetBefore || secretSetBefore {
		source = "process environment (.env present but not overriding)"
	}
	logger.Debug().
		Bool("client_id_preset", idSetBefore).
		Bool("client_secret_preset", secretSetBefore).
		Str("credential_source", source).
		Msg("loaded .env file")
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required credentials. Called before any network activity.
func (c *Config) Validate() error {
	if c.PortClientID == "" || c.PortClientSecret == "" {
		return perrors.ErrMissingCredentials
	}
	if c.DaysThreshold < 0 {
		return fmt.Errorf("DAYS_THRESHOLD must be >= 0, got %d", c.DaysThreshold)
	}
	return nil
}

// MetricsEnabled returns true if a Pushgateway URL is configured.
func (c *Config) MetricsEnabled() bool {
	return c.PushgatewayURL != ""
}
