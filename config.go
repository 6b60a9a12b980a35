package refetch

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven defaults for executors.
type Config struct {
	// TTL is the default time to live for cache entries.
	TTL time.Duration `env:"REFETCH_TTL" envDefault:"30s"`
	// Timeout bounds each network round trip.
	Timeout time.Duration `env:"REFETCH_TIMEOUT" envDefault:"10s"`
	// LogLevel is the level for the logger returned by NewLogger.
	LogLevel string `env:"REFETCH_LOG" envDefault:"warn"`
}

// ConfigFromEnv loads the executor configuration from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("refetch: parse env: %w", err)
	}
	return cfg, nil
}
