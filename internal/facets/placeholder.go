// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/models"
)

// PlaceholderCache stores fetched blur placeholders by URL.
type PlaceholderCache interface {
	Get(ctx context.Context, url string) (*models.Placeholder, bool)
	Put(ctx context.Context, p *models.Placeholder) error
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// PlaceholderSource fetches a placeholder, revalidating previous when set.
// It returns (previous, true, nil) when the server reports no change and
// (nil, false, nil) when the placeholder does not exist.
type PlaceholderSource interface {
	FetchPlaceholder(ctx context.Context, server models.ServerConfig, url string, previous *models.Placeholder) (*models.Placeholder, bool, error)
}

// MemoryPlaceholderCache is a PlaceholderCache over an in-process cache.
type MemoryPlaceholderCache struct {
	cache cache.Cacher
}

// NewMemoryPlaceholderCache wraps c.
func NewMemoryPlaceholderCache(c cache.Cacher) *MemoryPlaceholderCache {
	return &MemoryPlaceholderCache{cache: c}
}

func placeholderKey(url string) string {
	return "placeholder:" + url
}

// Get implements PlaceholderCache.
func (c *MemoryPlaceholderCache) Get(_ context.Context, url string) (*models.Placeholder, bool) {
	v, ok := c.cache.Get(placeholderKey(url))
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Placeholder)
	return p, ok
}

// Put implements PlaceholderCache.
func (c *MemoryPlaceholderCache) Put(_ context.Context, p *models.Placeholder) error {
	if p == nil {
		return nil
	}
	c.cache.Set(placeholderKey(p.URL), p)
	return nil
}

// Invalidate implements PlaceholderCache.
func (c *MemoryPlaceholderCache) Invalidate(_ context.Context, pattern string) (int, error) {
	return c.cache.DeleteMatching(placeholderKey(pattern)), nil
}

var _ PlaceholderCache = (*MemoryPlaceholderCache)(nil)
