package refetch

import (
	"context"
	"errors"
)

// Execute performs a request against the endpoint. If a cache entry exists
// for the (endpoint, options) pair and its age is below the TTL, the cached
// payload is returned without a network call. Otherwise the request goes
// out on the network, bound to a context that the next Execute call will
// cancel: at most one request is in flight per executor, and the last call
// to start wins.
//
// A successful response is stored in the cache and recorded in the state
// snapshot. A non-2xx status yields a *RequestError and any other transport
// failure a *NetworkError; both are recorded in the state with Data left at
// its prior value. A cancelled request yields ErrCancelled and leaves the
// state untouched.
func (e *Executor[T]) Execute(ctx context.Context, endpoint string, opts RequestOptions) (T, error) {
	var noValue T
	key := Key(endpoint, opts)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return noValue, ErrClosed
	}

	// A new call always supersedes the previous one, even when it ends up
	// being served from the cache. Bumping the generation here is what makes
	// the superseded call skip its state update once it resolves.
	if e.cancelInFlight != nil {
		e.cancelInFlight()
		e.cancelInFlight = nil
		e.generation++
		e.reportRequestSuperseded()
		e.log.Debugf("refetch: superseded in-flight request for key %s", key)
	}

	if value, ok := e.cache.get(key); ok {
		data, valid := value.(T)
		if !valid {
			e.mu.Unlock()
			return noValue, ErrInvalidType
		}
		e.state = State[T]{Data: data}
		e.mu.Unlock()
		return data, nil
	}

	e.generation++
	generation := e.generation
	reqCtx, cancel := context.WithCancel(ctx)
	e.cancelInFlight = cancel
	e.state.Loading = true
	e.state.Err = nil
	e.mu.Unlock()

	e.reportRequestStarted()
	data, err := fetch[T](reqCtx, e.transport, endpoint, opts)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return noValue, ErrClosed
	}
	if generation != e.generation {
		return noValue, ErrCancelled
	}

	e.cancelInFlight = nil
	cancel()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The caller's own context was cancelled. Not an error from the
			// user's point of view, so the state keeps whatever it had.
			e.state.Loading = false
			return noValue, ErrCancelled
		}
		e.state.Loading = false
		e.state.Err = err
		return noValue, err
	}

	e.cache.set(key, data)
	e.log.Debugf("refetch: cached response for key %s", key)
	e.state = State[T]{Data: data}
	return data, nil
}
