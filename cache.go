package refetch

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// cache is the response store that backs an executor. Entries are keyed by
// the serialized (endpoint, options) pair and considered stale once their
// age exceeds the TTL. A background sweep evicts expired entries so that a
// long-lived executor doesn't accumulate keys it will never serve again.
type cache struct {
	ttl             time.Duration
	shards          []*shard
	nextShard       int
	sweepInterval   time.Duration
	clock           Clock
	log             Logger
	metricsRecorder MetricsRecorder

	stopOnce sync.Once
	done     chan struct{}
}

func newCache(numShards int, ttl, sweepInterval time.Duration, clock Clock, log Logger, recorder MetricsRecorder) *cache {
	shards := make([]*shard, numShards)
	for i := 0; i < numShards; i++ {
		shards[i] = newShard(ttl, clock)
	}
	return &cache{
		ttl:             ttl,
		shards:          shards,
		sweepInterval:   sweepInterval,
		clock:           clock,
		log:             log,
		metricsRecorder: recorder,
		done:            make(chan struct{}),
	}
}

func (c *cache) size() int {
	var sum int
	for _, shard := range c.shards {
		sum += shard.size()
	}
	return sum
}

// startSweep runs the expired-entry sweep in a separate goroutine. One shard
// is swept per tick so that a sweep never holds more than one shard lock.
// The ticker is created before the goroutine starts so that a test clock
// can't advance past it.
func (c *cache) startSweep() {
	ticker, stop := c.clock.NewTicker(c.sweepInterval)
	go func() {
		defer stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker:
				c.reportSweep()
				evicted := c.shards[c.nextShard].evictExpired()
				c.nextShard = (c.nextShard + 1) % len(c.shards)
				if evicted > 0 {
					c.log.Debugf("refetch: swept %d expired entries", evicted)
					c.reportEntriesEvicted(evicted)
				}
			}
		}
	}()
}

// stop halts the sweep goroutine. Safe to call more than once.
func (c *cache) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// getShard returns the shard that should be used for the specified key.
func (c *cache) getShard(key string) *shard {
	hash := xxhash.Sum64String(key)
	shardIndex := hash % uint64(len(c.shards))
	c.reportShardIndex(int(shardIndex))
	return c.shards[shardIndex]
}

func (c *cache) get(key string) (any, bool) {
	value, ok := c.getShard(key).get(key)
	c.reportCacheHits(ok)
	return value, ok
}

func (c *cache) set(key string, value any) {
	c.getShard(key).set(key, value)
}

func (c *cache) delete(key string) {
	c.getShard(key).delete(key)
}
