package refetch

import (
	"net/http"
	"time"
)

type config struct {
	clock           Clock
	log             Logger
	metricsRecorder MetricsRecorder
	transport       *http.Client
	numShards       int
	sweepInterval   time.Duration
	disableSweep    bool
	immediate       bool
}

type Option func(*config)

// WithClock can be used to change the clock that the executor uses. This is
// useful for testing.
func WithClock(clock Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the logger that the executor writes to. The default
// discards everything.
func WithLogger(log Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithMetrics is used to make the executor report metrics.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(c *config) {
		c.metricsRecorder = recorder
	}
}

// WithHTTPClient sets the HTTP client used for the actual round trips. The
// client has to honor request context cancellation; http.DefaultTransport
// and anything built on it does.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.transport = client
	}
}

// WithShards sets the number of shards for the executor's cache.
func WithShards(numShards int) Option {
	return func(c *config) {
		c.numShards = numShards
	}
}

// WithSweepInterval sets the interval at which the cache scans a shard to
// evict expired entries.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *config) {
		c.sweepInterval = interval
	}
}

// WithNoContinuousSweeping disables the background sweep of expired entries.
// Stale entries are still never served; they just remain in memory until
// they are replaced.
func WithNoContinuousSweeping() Option {
	return func(c *config) {
		c.disableSweep = true
	}
}

// WithImmediateExecution makes the executor run Execute once with its
// default endpoint and options as soon as it is created.
func WithImmediateExecution() Option {
	return func(c *config) {
		c.immediate = true
	}
}

// validateArgs is a helper function that panics if the arguments are invalid.
func validateArgs(endpoint string, ttl time.Duration, cfg *config) {
	if endpoint == "" {
		panic("endpoint must not be empty")
	}

	if ttl <= 0 {
		panic("ttl must be greater than 0")
	}

	if cfg.numShards <= 0 {
		panic("numShards must be greater than 0")
	}

	if cfg.sweepInterval <= 0 {
		panic("sweepInterval must be greater than 0")
	}
}
