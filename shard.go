package refetch

import (
	"sync"
	"time"
)

type shard struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]*entry
	clock   Clock
}

func newShard(ttl time.Duration, clock Clock) *shard {
	return &shard{
		ttl:     ttl,
		entries: make(map[string]*entry),
		clock:   clock,
	}
}

func (s *shard) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictExpired removes every expired entry in the shard and
// reports how many were evicted.
func (s *shard) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entriesEvicted int
	for _, e := range s.entries {
		if s.clock.Now().After(e.expiresAt) {
			delete(s.entries, e.key)
			entriesEvicted++
		}
	}
	return entriesEvicted
}

// get returns the value for the key if an entry exists and its age is still
// below the TTL. A stale entry is treated as a miss, not removed; the next
// set for the key replaces it.
func (s *shard) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.clock.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// set writes a key-value pair to the shard, replacing any previous entry.
func (s *shard) set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		key:       key,
		value:     value,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
}

func (s *shard) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
