// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/metrics"
)

// entry is a cached item with expiration.
type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache.
//
// Expired entries are removed lazily on Get and by a background sweep that
// runs until Close is called.
//
//	c := cache.New("metadata", 10*time.Minute)
//	defer c.Close()
//	c.Set("meta:a:movies/Heat/metadata.json", doc)
type Cache struct {
	name    string
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stats   Stats
	statsMu sync.Mutex
	stop    chan struct{}
	once    sync.Once
}

// Stats tracks cache performance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// sweepInterval is how often the background loop drops expired entries.
var sweepInterval = 5 * time.Minute

// New creates a TTL cache. name labels its Prometheus hit/miss series.
func New(name string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{
		name:    name,
		entries: make(map[string]entry),
		ttl:     ttl,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
			c.bump(func(s *Stats) { s.Evictions++ })
		}
		c.mu.Unlock()
		ok = false
	}

	if !ok {
		c.bump(func(s *Stats) { s.Misses++ })
		metrics.RecordCacheLookup(c.name, false)
		return nil, false
	}
	c.bump(func(s *Stats) { s.Hits++ })
	metrics.RecordCacheLookup(c.name, true)
	return e.data, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{data: value, expiresAt: time.Now().Add(ttl)}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.bump(func(s *Stats) { s.TotalKeys = n })
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	n := int64(len(c.entries))
	c.mu.Unlock()

	if ok {
		c.bump(func(s *Stats) { s.Evictions++; s.TotalKeys = n })
	}
}

// DeleteMatching removes every key matching a wildcard pattern (see Match)
// and returns how many were removed.
func (c *Cache) DeleteMatching(pattern string) int {
	m := compilePattern(pattern)

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if m.MatchString(key) {
			delete(c.entries, key)
			removed++
		}
	}
	n := int64(len(c.entries))
	c.mu.Unlock()

	if removed > 0 {
		c.bump(func(s *Stats) { s.Evictions += int64(removed); s.TotalKeys = n })
		metrics.CacheInvalidations.WithLabelValues(c.name).Add(float64(removed))
	}
	return removed
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.bump(func(s *Stats) { s.Evictions += removed; s.TotalKeys = 0 })
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a copy of the current statistics.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	return hitRate(c.GetStats())
}

// Close stops the background sweep. It is safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes all expired entries.
func (c *Cache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	var evicted int64
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.bump(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = n
		s.LastCleanup = now
	})
}

func (c *Cache) bump(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

func hitRate(s Stats) float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerateKey builds a compact cache key from a namespace and parameters.
//
//	cache.GenerateKey("meta", struct{ Server, Path string }{"a", "movies/Heat"})
//	// "meta:5c3e0b9f1d2a7e44"
func GenerateKey(namespace string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", namespace, params)
	}
	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64(data))
}
