// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package cache provides the in-process caches used by the fetch layer and
// the blur-placeholder store: a TTL cache and a bounded LFU cache behind one
// Cacher interface, both supporting wildcard invalidation.
package cache

import "time"

// Cacher is implemented by Cache and LFUCache.
type Cacher interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	SetWithTTL(key string, value any, ttl time.Duration)
	Delete(key string)
	DeleteMatching(pattern string) int
	Clear()
	Len() int
	GetStats() Stats
	HitRate() float64
	Close()
}

// Type selects a Cacher implementation.
type Type string

const (
	// TypeTTL is the unbounded TTL cache.
	TypeTTL Type = "ttl"

	// TypeLFU is the bounded least-frequently-used cache.
	TypeLFU Type = "lfu"
)

// Config holds cache construction settings.
type Config struct {
	Type     Type          `koanf:"type" validate:"omitempty,oneof=ttl lfu"`
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity" validate:"gte=0"`
}

// NewCacher builds the cache described by cfg. name labels its metrics.
//
//	c := cache.NewCacher("metadata", cache.Config{Type: cache.TypeLFU, TTL: time.Hour, Capacity: 5000})
func NewCacher(name string, cfg Config) Cacher {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Type == TypeLFU {
		return NewLFUCache(name, cfg.Capacity, cfg.TTL)
	}
	return New(name, cfg.TTL)
}

var (
	_ Cacher = (*Cache)(nil)
	_ Cacher = (*LFUCache)(nil)
)
