// Package config loads the relay's runtime configuration from environment
// variables (optionally seeded from a .env file), generalizing the
// original server's key-value config file to the idiom this repo's
// sibling services all use.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all server configuration.
//
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Listener
	Port                  int  `env:"CHAT_PORT" envDefault:"7000"`
	MaxSessionCount       int  `env:"CHAT_MAX_SESSION_COUNT" envDefault:"10000"`
	ConcurrentThreadCount int  `env:"CHAT_CONCURRENT_THREAD_COUNT" envDefault:"4"`
	WorkerThreadCount     int  `env:"CHAT_WORKER_THREAD_COUNT" envDefault:"0"`
	TCPNoDelay            bool `env:"CHAT_TCP_NODELAY" envDefault:"true"`
	SndBufZero            bool `env:"CHAT_SND_BUF_ZERO" envDefault:"false"`

	// Logging
	LogLevel  string `env:"CHAT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CHAT_LOG_FORMAT" envDefault:"json"`

	// Metrics
	MetricsAddr     string        `env:"CHAT_METRICS_ADDR" envDefault:":9100"`
	MetricsInterval time.Duration `env:"CHAT_METRICS_INTERVAL" envDefault:"15s"`

	// Event bus
	NatsEnabled bool   `env:"CHAT_NATS_ENABLED" envDefault:"false"`
	NatsURL     string `env:"CHAT_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
}

// Load reads configuration from an optional .env file and then from
// environment variables. Priority: env vars > .env file > defaults.
//
// logger is optional; with nil (before a real logger exists) the .env
// status messages are not logged at all.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("CHAT_PORT must be 1-65535, got %d", c.Port)
	}
	if c.MaxSessionCount < 1 {
		return fmt.Errorf("CHAT_MAX_SESSION_COUNT must be > 0, got %d", c.MaxSessionCount)
	}
	if c.ConcurrentThreadCount < 1 {
		return fmt.Errorf("CHAT_CONCURRENT_THREAD_COUNT must be > 0, got %d", c.ConcurrentThreadCount)
	}
	if c.WorkerThreadCount < 0 {
		return fmt.Errorf("CHAT_WORKER_THREAD_COUNT must be >= 0, got %d", c.WorkerThreadCount)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("CHAT_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.NatsEnabled && c.NatsURL == "" {
		return fmt.Errorf("CHAT_NATS_URL is required when CHAT_NATS_ENABLED=true")
	}
	return nil
}
