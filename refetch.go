// Package refetch provides an executor that performs HTTP requests for a
// single logical data need, memoizes the responses by (endpoint, options)
// for a bounded time window, and tracks the request lifecycle so that a
// view layer can render loading, error, and data states. Starting a new
// request cancels the one in flight: the last call to start wins.
package refetch

import "context"

// Refetch evicts the cache entry for the executor's default endpoint and
// options, and then calls Execute with those defaults. It therefore always
// results in a network round trip, no matter how fresh the cache entry was.
func (e *Executor[T]) Refetch(ctx context.Context) (T, error) {
	e.cache.delete(Key(e.endpoint, e.defaults))
	return e.Execute(ctx, e.endpoint, e.defaults)
}
