// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/catalogd/internal/metrics"
)

// lfuEntry is a node in one frequency bucket's doubly-linked list.
type lfuEntry struct {
	key       string
	value     any
	freq      int
	expiresAt time.Time
	prev      *lfuEntry
	next      *lfuEntry
}

// freqList holds the entries sharing one access frequency, most recent first.
type freqList struct {
	head, tail *lfuEntry
	size       int
}

func newFreqList() *freqList {
	fl := &freqList{head: &lfuEntry{}, tail: &lfuEntry{}}
	fl.head.next = fl.tail
	fl.tail.prev = fl.head
	return fl
}

func (fl *freqList) pushFront(e *lfuEntry) {
	e.prev = fl.head
	e.next = fl.head.next
	fl.head.next.prev = e
	fl.head.next = e
	fl.size++
}

func (fl *freqList) unlink(e *lfuEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	fl.size--
}

func (fl *freqList) back() *lfuEntry {
	if fl.size == 0 {
		return nil
	}
	return fl.tail.prev
}

// LFUCache is a bounded cache that evicts the least frequently used entry,
// breaking ties by recency. It suits metadata documents of popular titles
// that are re-read on every pass while the long tail is touched rarely.
type LFUCache struct {
	name     string
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	keys     map[string]*lfuEntry
	freqs    map[int]*freqList
	minFreq  int
	stats    Stats
}

// NewLFUCache creates an LFU cache. Non-positive capacity or ttl fall back to
// 10000 entries and 5 minutes.
func NewLFUCache(name string, capacity int, ttl time.Duration) *LFUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LFUCache{
		name:     name,
		capacity: capacity,
		ttl:      ttl,
		keys:     make(map[string]*lfuEntry, capacity),
		freqs:    make(map[int]*freqList),
	}
}

// Get returns the value for key and bumps its frequency.
func (c *LFUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.keys[key]
	if ok && time.Now().After(e.expiresAt) {
		c.remove(e)
		c.stats.Evictions++
		ok = false
	}
	if !ok {
		c.stats.Misses++
		metrics.RecordCacheLookup(c.name, false)
		return nil, false
	}
	c.touch(e)
	c.stats.Hits++
	metrics.RecordCacheLookup(c.name, true)
	return e.value, true
}

// Set stores value with the default TTL.
func (c *LFUCache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL, evicting if at capacity.
func (c *LFUCache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if e, ok := c.keys[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.touch(e)
		return
	}
	if len(c.keys) >= c.capacity {
		c.evict()
	}
	e := &lfuEntry{key: key, value: value, freq: 1, expiresAt: expiresAt}
	c.bucket(1).pushFront(e)
	c.keys[key] = e
	c.minFreq = 1
	c.stats.TotalKeys = int64(len(c.keys))
}

// Delete removes key.
func (c *LFUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.keys[key]; ok {
		c.remove(e)
		c.stats.Evictions++
	}
}

// DeleteMatching removes every key matching a wildcard pattern.
func (c *LFUCache) DeleteMatching(pattern string) int {
	m := compilePattern(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.keys {
		if m.MatchString(key) {
			c.remove(e)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	if removed > 0 {
		metrics.CacheInvalidations.WithLabelValues(c.name).Add(float64(removed))
	}
	return removed
}

// Clear removes every entry.
func (c *LFUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += int64(len(c.keys))
	c.keys = make(map[string]*lfuEntry, c.capacity)
	c.freqs = make(map[int]*freqList)
	c.minFreq = 0
	c.stats.TotalKeys = 0
}

// Len returns the number of stored entries.
func (c *LFUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// GetStats returns a copy of the current statistics.
func (c *LFUCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *LFUCache) HitRate() float64 {
	return hitRate(c.GetStats())
}

// Close is a no-op; LFUCache expires lazily.
func (c *LFUCache) Close() {}

// frequency returns the access count of key, or 0.
func (c *LFUCache) frequency(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.keys[key]; ok {
		return e.freq
	}
	return 0
}

func (c *LFUCache) bucket(freq int) *freqList {
	fl := c.freqs[freq]
	if fl == nil {
		fl = newFreqList()
		c.freqs[freq] = fl
	}
	return fl
}

// touch moves e to the next frequency bucket (lock held).
func (c *LFUCache) touch(e *lfuEntry) {
	if fl := c.freqs[e.freq]; fl != nil {
		fl.unlink(e)
		if fl.size == 0 {
			delete(c.freqs, e.freq)
			if c.minFreq == e.freq {
				c.minFreq++
			}
		}
	}
	e.freq++
	c.bucket(e.freq).pushFront(e)
}

// evict drops the least recently used entry of the lowest frequency (lock held).
func (c *LFUCache) evict() {
	fl := c.freqs[c.minFreq]
	if fl == nil {
		// minFreq is stale after removals; find the real minimum.
		c.minFreq = 0
		for f, l := range c.freqs {
			if l.size > 0 && (c.minFreq == 0 || f < c.minFreq) {
				c.minFreq = f
			}
		}
		if fl = c.freqs[c.minFreq]; fl == nil {
			return
		}
	}
	if e := fl.back(); e != nil {
		c.remove(e)
		c.stats.Evictions++
	}
}

// remove unlinks e and drops it from the key map (lock held).
func (c *LFUCache) remove(e *lfuEntry) {
	if fl := c.freqs[e.freq]; fl != nil {
		fl.unlink(e)
		if fl.size == 0 {
			delete(c.freqs, e.freq)
		}
	}
	delete(c.keys, e.key)
	c.stats.TotalKeys = int64(len(c.keys))
}
