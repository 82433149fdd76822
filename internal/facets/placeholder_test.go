// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"
	"sync"

	"github.com/tomtom215/catalogd/internal/models"
)

// staticPlaceholders serves fixed placeholder strings by URL and counts
// fetches so tests can observe cache behaviour.
type staticPlaceholders struct {
	mu      sync.Mutex
	hashes  map[string]string
	fetches int
}

func newStaticPlaceholders(hashes map[string]string) *staticPlaceholders {
	return &staticPlaceholders{hashes: hashes}
}

func (s *staticPlaceholders) FetchPlaceholder(_ context.Context, _ models.ServerConfig, url string, previous *models.Placeholder) (*models.Placeholder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	h, ok := s.hashes[url]
	if !ok {
		return nil, false, nil
	}
	if previous != nil && previous.Hash == h {
		return previous, true, nil
	}
	return &models.Placeholder{URL: url, Hash: h}, false, nil
}

func (s *staticPlaceholders) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

var _ PlaceholderSource = (*staticPlaceholders)(nil)
