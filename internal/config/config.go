// Package config loads service settings from built-in defaults, an optional
// YAML file and GREYWOLF_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GREYWOLF_"

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Events    EventsConfig    `yaml:"events" envPrefix:"EVENTS_"`
	Optimizer OptimizerConfig `yaml:"optimizer" envPrefix:"OPTIMIZER_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port               int `yaml:"port" env:"PORT" validate:"gte=1,lte=65535"`
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec" env:"SHUTDOWN_TIMEOUT_SEC" validate:"gte=0"`
	MaxConcurrentJobs  int `yaml:"max_concurrent_jobs" env:"MAX_CONCURRENT_JOBS" validate:"gte=1"`
}

type StoreConfig struct {
	DataDir string `yaml:"data_dir" env:"DATA_DIR" validate:"required"`
}

type EventsConfig struct {
	// NATSURL enables the NATS publisher when set
	NATSURL string `yaml:"nats_url" env:"NATS_URL" validate:"omitempty,url"`
	Name    string `yaml:"name" env:"NAME"`
}

// OptimizerConfig holds the defaults applied to jobs and benchmark runs that
// leave a setting unspecified.
type OptimizerConfig struct {
	PopSize            int     `yaml:"pop_size" env:"POP_SIZE" validate:"gte=3"`
	Iters              int     `yaml:"iters" env:"ITERS" validate:"gte=0"`
	Workers            int     `yaml:"workers" env:"WORKERS" validate:"gte=0"`
	Trials             int     `yaml:"trials" env:"TRIALS" validate:"gte=1"`
	Seed               int64   `yaml:"seed" env:"SEED"`
	CheckpointInterval int     `yaml:"checkpoint_interval" env:"CHECKPOINT_INTERVAL" validate:"gte=0"`
	Patience           int     `yaml:"patience" env:"PATIENCE" validate:"gte=0"`
	Threshold          float64 `yaml:"threshold" env:"THRESHOLD" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ShutdownTimeoutSec: 10,
			MaxConcurrentJobs:  4,
		},
		Store: StoreConfig{
			DataDir: "./data",
		},
		Events: EventsConfig{
			Name: "greywolf",
		},
		Optimizer: OptimizerConfig{
			PopSize:   30,
			Iters:     1000,
			Workers:   0,
			Trials:    30,
			Seed:      1,
			Patience:  0,
			Threshold: 1e-6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("environment: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// SlogLevel maps Logging.Level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.Logging.Level)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
