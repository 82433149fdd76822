// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package kvstore

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/facets"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
)

// Placeholders is a facets.PlaceholderCache that survives restarts. Reads
// go through an optional in-process cache first.
type Placeholders struct {
	store *Store
	hot   cache.Cacher
}

// NewPlaceholders returns the placeholder view of store. hot may be nil.
func NewPlaceholders(store *Store, hot cache.Cacher) *Placeholders {
	return &Placeholders{store: store, hot: hot}
}

// Get implements facets.PlaceholderCache. Read errors count as a miss.
func (p *Placeholders) Get(_ context.Context, url string) (*models.Placeholder, bool) {
	key := prefixPlaceholder + url
	if p.hot != nil {
		if v, ok := p.hot.Get(key); ok {
			if ph, ok := v.(*models.Placeholder); ok {
				return ph, true
			}
		}
	}

	var ph models.Placeholder
	err := p.store.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ph)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound { //nolint:errorlint // sentinel returned unwrapped by txn.Get
			logging.Debug().Err(err).Str("url", logging.SanitizeURL(url)).Msg("Placeholder read failed")
		}
		return nil, false
	}
	if p.hot != nil {
		p.hot.Set(key, &ph)
	}
	return &ph, true
}

// Put implements facets.PlaceholderCache.
func (p *Placeholders) Put(_ context.Context, ph *models.Placeholder) error {
	if ph == nil {
		return nil
	}
	data, err := json.Marshal(ph)
	if err != nil {
		return err
	}
	key := prefixPlaceholder + ph.URL
	err = p.store.update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl := p.store.cfg.PlaceholderTTL; ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return err
	}
	if p.hot != nil {
		p.hot.Set(key, ph)
	}
	return nil
}

// Invalidate implements facets.PlaceholderCache. pattern is a URL glob where
// "*" matches any run of characters.
func (p *Placeholders) Invalidate(ctx context.Context, pattern string) (int, error) {
	if p.hot != nil {
		p.hot.DeleteMatching(prefixPlaceholder + pattern)
	}

	scanPrefix := prefixPlaceholder
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		scanPrefix += pattern[:i]
	} else {
		scanPrefix += pattern
	}

	var matched [][]byte
	err := p.store.scan(ctx, scanPrefix, false, func(_ string, item *badger.Item) error {
		url := strings.TrimPrefix(string(item.Key()), prefixPlaceholder)
		if cache.Match(pattern, url) {
			matched = append(matched, item.KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	if err := p.store.Ping(ctx); err != nil {
		return 0, err
	}
	wb := p.store.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range matched {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(matched), nil
}

var _ facets.PlaceholderCache = (*Placeholders)(nil)
