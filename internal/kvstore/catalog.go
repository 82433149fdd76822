// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

const backendName = "badger"

// Catalog is a repository.Repository stored in a Store.
type Catalog struct {
	store *Store
}

// NewCatalog returns the catalog view of store.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store}
}

func observe(op string, start time.Time, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	metrics.RecordRepositoryOperation(backendName, op, time.Since(start), err)
}

func (c *Catalog) get(prefix, key string, out any) error {
	return c.store.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func (c *Catalog) put(prefix, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return syncerr.NewValidationError(key, "encode "+prefix, err)
	}
	return c.store.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+key), data)
	})
}

func (c *Catalog) del(prefix, key string) error {
	return c.store.update(func(txn *badger.Txn) error {
		k := []byte(prefix + key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

func translate(op, kind, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%s %q: %w", kind, key, repository.ErrNotFound)
	case errors.Is(err, ErrStoreClosed):
		return repository.ErrClosed
	default:
		var ve *syncerr.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return syncerr.NewPersistenceError(op, key, err)
	}
}

// FindMovie implements repository.Repository.
func (c *Catalog) FindMovie(_ context.Context, key string) (movie *models.Movie, err error) {
	start := time.Now()
	defer func() { observe("find_movie", start, err) }()

	movie = &models.Movie{}
	if err = translate("find_movie", "movie", key, c.get(prefixMovie, key, movie)); err != nil {
		return nil, err
	}
	movie.Key = key
	return movie, nil
}

// FindShow implements repository.Repository.
func (c *Catalog) FindShow(_ context.Context, key string) (show *models.TVShow, err error) {
	start := time.Now()
	defer func() { observe("find_show", start, err) }()

	show = &models.TVShow{}
	if err = translate("find_show", "show", key, c.get(prefixShow, key, show)); err != nil {
		return nil, err
	}
	show.Key = key
	return show, nil
}

// UpsertMovie implements repository.Repository.
func (c *Catalog) UpsertMovie(_ context.Context, key string, movie *models.Movie) (err error) {
	start := time.Now()
	defer func() { observe("upsert_movie", start, err) }()

	stored := movie.Clone()
	stored.Key = key
	return translate("upsert_movie", "movie", key, c.put(prefixMovie, key, stored))
}

// UpsertShow implements repository.Repository.
func (c *Catalog) UpsertShow(_ context.Context, key string, show *models.TVShow) (err error) {
	start := time.Now()
	defer func() { observe("upsert_show", start, err) }()

	stored := show.Clone()
	stored.Key = key
	return translate("upsert_show", "show", key, c.put(prefixShow, key, stored))
}

// DeleteMovie implements repository.Repository.
func (c *Catalog) DeleteMovie(_ context.Context, key string) (err error) {
	start := time.Now()
	defer func() { observe("delete_movie", start, err) }()
	return translate("delete_movie", "movie", key, c.del(prefixMovie, key))
}

// DeleteShow implements repository.Repository.
func (c *Catalog) DeleteShow(_ context.Context, key string) (err error) {
	start := time.Now()
	defer func() { observe("delete_show", start, err) }()
	return translate("delete_show", "show", key, c.del(prefixShow, key))
}

func prefixFor(mediaType models.MediaType) (string, error) {
	switch mediaType {
	case models.MediaTypeMovie:
		return prefixMovie, nil
	case models.MediaTypeTVShow:
		return prefixShow, nil
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrUnsupportedMediaType, mediaType)
	}
}

// Count implements repository.Repository.
func (c *Catalog) Count(ctx context.Context, mediaType models.MediaType) (int, error) {
	keys, err := c.ListKeys(ctx, mediaType)
	return len(keys), err
}

// ListKeys implements repository.Repository. Keys come back in byte order.
func (c *Catalog) ListKeys(ctx context.Context, mediaType models.MediaType) ([]string, error) {
	prefix, err := prefixFor(mediaType)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = c.store.scan(ctx, prefix, false, func(key string, _ *badger.Item) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, translate("list_keys", string(mediaType), "", err)
	}
	return keys, nil
}

// Stats implements repository.Repository. Shows are decoded to count their
// seasons and episodes.
func (c *Catalog) Stats(ctx context.Context) (*models.CatalogStats, error) {
	stats := &models.CatalogStats{}
	var last time.Time

	err := c.store.scan(ctx, prefixMovie, true, func(_ string, item *badger.Item) error {
		stats.Movies++
		var m struct {
			LastSynced time.Time `json:"lastSynced"`
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
			return err
		}
		if m.LastSynced.After(last) {
			last = m.LastSynced
		}
		return nil
	})
	if err != nil {
		return nil, translate("stats", "movie", "", err)
	}

	err = c.store.scan(ctx, prefixShow, true, func(key string, item *badger.Item) error {
		var show models.TVShow
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &show) }); err != nil {
			return syncerr.NewValidationError(key, "decode stored show", err)
		}
		stats.Shows++
		seasons, episodes := repository.CountNested([]*models.TVShow{&show})
		stats.Seasons += seasons
		stats.Episodes += episodes
		if show.LastSynced.After(last) {
			last = show.LastSynced
		}
		return nil
	})
	if err != nil {
		return nil, translate("stats", "show", "", err)
	}

	if !last.IsZero() {
		stats.LastSyncTime = &last
	}
	return stats, nil
}

// Ping implements repository.Repository.
func (c *Catalog) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return repository.ErrClosed
	}
	return nil
}

// Close implements repository.Repository. It closes the underlying store.
func (c *Catalog) Close() error {
	return c.store.Close()
}

var _ repository.Repository = (*Catalog)(nil)
