// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. SETTLEMENT_LOG_LEVEL.
const EnvPrefix = "SETTLEMENT"

// Config is the complete application configuration.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`

	MaxInputBytes  int64  `envconfig:"MAX_INPUT_BYTES" default:"20971520" validate:"min=1"`
	Timezone       string `envconfig:"TIMEZONE"`
	VocabularyFile string `envconfig:"VOCABULARY_FILE"`

	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	Bucket    string `envconfig:"BUCKET"`
	ProjectID string `envconfig:"PROJECT_ID"`
	Dataset   string `envconfig:"DATASET" default:"settlements"`

	WorkerCount int `envconfig:"WORKER_COUNT" default:"2" validate:"min=1"`
	QueueSize   int `envconfig:"QUEUE_SIZE" default:"100" validate:"min=1"`
	MaxRetries  int `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
}

// Load reads configuration. An explicit envFile must exist; otherwise a
// .env in the working directory is used when present.
func Load(envFile ...string) (*Config, error) {
	if len(envFile) > 0 && envFile[0] != "" {
		if err := godotenv.Load(envFile[0]); err != nil {
			return nil, fmt.Errorf("config.Load: loading %s: %w", envFile[0], err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the timezone name.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Location returns the zone for dates built from text. Empty means local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RequireCloud reports an error when the settings needed for BigQuery are
// missing.
func (c *Config) RequireCloud() error {
	if c.ProjectID == "" {
		return fmt.Errorf("%s_PROJECT_ID is required", EnvPrefix)
	}
	if c.Dataset == "" {
		return fmt.Errorf("%s_DATASET is required", EnvPrefix)
	}
	return nil
}
