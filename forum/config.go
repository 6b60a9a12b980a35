package forum

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven settings for the forum client.
type Config struct {
	// BaseURL is the root of the forum REST API.
	BaseURL string `env:"FORUM_BASE_URL" envDefault:"http://localhost:8080"`
	// Timeout bounds each network round trip.
	Timeout time.Duration `env:"FORUM_TIMEOUT" envDefault:"10s"`
	// TTL is the time to live for cached reads.
	TTL time.Duration `env:"FORUM_CACHE_TTL" envDefault:"30s"`
	// TokenMaxAge is how long an auth token is used before it is refreshed.
	TokenMaxAge time.Duration `env:"FORUM_TOKEN_MAX_AGE" envDefault:"15m"`
}

// ConfigFromEnv loads the client configuration from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("forum: parse env: %w", err)
	}
	return cfg, nil
}
