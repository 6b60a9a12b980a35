package refetch

// MetricsRecorder is the interface that executors use to report what they
// are doing. Every method must be safe for concurrent use.
type MetricsRecorder interface {
	// CacheHit is called for every Execute that is served from the cache.
	CacheHit()
	// CacheMiss is called for every Execute that has to go to the network.
	CacheMiss()
	// Sweep is called each time the cache sweeps a shard for expired entries.
	Sweep()
	// EntriesEvicted is called with the number of entries a sweep removed.
	EntriesEvicted(int)
	// ShardIndex is called to report which shard performed an operation.
	ShardIndex(int)
	// RequestStarted is called when an Execute call goes out on the network.
	RequestStarted()
	// RequestSuperseded is called when a newer Execute call cancels an
	// in-flight request.
	RequestSuperseded()
	// ObserveCacheSize is called once with a callback that reports the
	// number of entries in the executor's cache.
	ObserveCacheSize(callback func() int)
}

func (c *cache) reportCacheHits(cacheHit bool) {
	if c.metricsRecorder == nil {
		return
	}
	if !cacheHit {
		c.metricsRecorder.CacheMiss()
		return
	}
	c.metricsRecorder.CacheHit()
}

func (c *cache) reportSweep() {
	if c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.Sweep()
}

func (c *cache) reportEntriesEvicted(n int) {
	if c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.EntriesEvicted(n)
}

func (c *cache) reportShardIndex(index int) {
	if c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.ShardIndex(index)
}

func (e *Executor[T]) reportRequestStarted() {
	if e.metricsRecorder == nil {
		return
	}
	e.metricsRecorder.RequestStarted()
}

func (e *Executor[T]) reportRequestSuperseded() {
	if e.metricsRecorder == nil {
		return
	}
	e.metricsRecorder.RequestSuperseded()
}
