package refetch

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const defaultNumShards = 8

// State is a snapshot of where an executor is in its request lifecycle.
// Data keeps its previous value across failed requests, so a view can keep
// rendering the last good payload next to the error.
type State[T any] struct {
	Data    T
	Loading bool
	Err     error
}

// Executor performs network fetches for a single logical data need. It
// memoizes responses by (endpoint, options) for the duration of the TTL,
// tracks the request lifecycle for presentation, and makes sure that at
// most one request is in flight at a time: starting a new one cancels the
// previous.
type Executor[T any] struct {
	endpoint        string
	defaults        RequestOptions
	cache           *cache
	transport       *http.Client
	log             Logger
	metricsRecorder MetricsRecorder

	mu             sync.Mutex
	state          State[T]
	generation     uint64
	cancelInFlight context.CancelFunc
	closed         bool
}

// New creates a new Executor instance with the specified configuration.
//
// `endpoint` and `defaults` are the explicit defaults used by Refetch and by
// immediate execution. `ttl` sets the time to live for each cache entry and
// has to be greater than 0. `opts` allows for additional configuration to
// be applied to the executor.
func New[T any](endpoint string, defaults RequestOptions, ttl time.Duration, opts ...Option) *Executor[T] {
	cfg := &config{
		clock:         NewClock(),
		log:           NewNoopLogger(),
		transport:     &http.Client{},
		numShards:     defaultNumShards,
		sweepInterval: ttl,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	validateArgs(endpoint, ttl, cfg)

	e := &Executor[T]{
		endpoint:        endpoint,
		defaults:        defaults,
		cache:           newCache(cfg.numShards, ttl, cfg.sweepInterval, cfg.clock, cfg.log, cfg.metricsRecorder),
		transport:       cfg.transport,
		log:             cfg.log,
		metricsRecorder: cfg.metricsRecorder,
	}

	if cfg.metricsRecorder != nil {
		cfg.metricsRecorder.ObserveCacheSize(e.cache.size)
	}

	if !cfg.disableSweep {
		e.cache.startSweep()
	}

	if cfg.immediate {
		safeGo(e.log, func() {
			//nolint:errcheck // The outcome lands in the state snapshot.
			e.Execute(context.Background(), endpoint, defaults)
		})
	}

	return e
}

// State returns a snapshot of the executor's request state.
func (e *Executor[T]) State() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Size returns the number of entries in the executor's cache.
func (e *Executor[T]) Size() int {
	return e.cache.size()
}

// Close cancels any in-flight request and stops the cache sweep. The
// executor's state is frozen: no request that resolves after Close will
// mutate it, and further Execute and Refetch calls return ErrClosed.
// Safe to call more than once.
func (e *Executor[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.cancelInFlight != nil {
		e.cancelInFlight()
		e.cancelInFlight = nil
	}
	e.cache.stop()
}
