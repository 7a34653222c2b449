// Package cache holds short-lived results of read-only bridge queries
// so a polling dashboard does not hammer the privileged executor.
package cache

import (
	"sync"
	"time"
)

// ttls lists the cacheable invoke channels and how long each result
// stays fresh. Anything not listed is never cached; state-changing
// channels must stay off this table.
var ttls = map[string]time.Duration{
	"vm:list":      2 * time.Second,
	"switch:list":  10 * time.Second,
	"host:info":    time.Minute,
	"host:metrics": 2 * time.Second,
}

type entry struct {
	value   any
	expires time.Time
}

// QueryCache caches results per channel. Entries expire on their
// channel's TTL and can be invalidated early when a state-changing
// operation makes them stale.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty query cache.
func New() *QueryCache {
	return &QueryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Cacheable reports whether results for channel may be cached.
func Cacheable(channel string) bool {
	_, ok := ttls[channel]
	return ok
}

// Get returns the fresh cached result for channel, if any.
func (q *QueryCache) Get(channel string) (any, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	e, ok := q.entries[channel]
	if !ok || q.now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set stores a result under the channel's TTL. A no-op for channels
// not on the cacheable table.
func (q *QueryCache) Set(channel string, value any) {
	ttl, ok := ttls[channel]
	if !ok {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[channel] = entry{value: value, expires: q.now().Add(ttl)}
}

// Invalidate drops the entries for the given channels.
func (q *QueryCache) Invalidate(channels ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, channel := range channels {
		delete(q.entries, channel)
	}
}

// Clear drops every entry.
func (q *QueryCache) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]entry)
}
