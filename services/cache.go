package services

import (
	"sync"
	"time"
)

// Cache TTLs. Fixed constants rather than configuration: node data is a cheap
// re-derivable snapshot, geography for a given IP rarely changes.
const (
	NodesTTL   = 30 * time.Second
	StatsTTL   = 30 * time.Second
	HistoryTTL = 5 * time.Minute
)

// Cache keys shared between the pipeline and its consumers. Geo entries use
// their own namespaced keys owned by the geo resolver.
const (
	KeyNodes   = "pnodes"
	KeyStats   = "network_stats"
	KeyHistory = "history"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory key-value store with per-entry expiry. Expired
// entries are evicted lazily on read; Sweep can additionally reclaim memory.
// Absence and expiry are both reported as a miss, never as a failure.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewCache creates an empty cache. Construct one per process and inject it;
// there is no package-level instance.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]cacheEntry),
		stopChan: make(chan struct{}),
	}
}

// Set stores value under key with expiry now+ttl, replacing any existing
// entry and its expiry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns the value stored under key. An expired entry is deleted and
// reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have replaced
		// the entry since the read.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Has reports whether a live entry exists for key, evicting it if expired.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes an entry unconditionally.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every expired entry. Lazy eviction keeps the cache correct
// without it; sweeping only bounds memory for keys that are never read again.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// StartSweeper runs Sweep on the given interval until Stop is called.
func (c *Cache) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop terminates the background sweeper, if one was started.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}
