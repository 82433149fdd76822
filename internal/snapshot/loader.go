// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package snapshot loads source server media lists and extracts the
// per-entity candidate values the facet aggregators reconcile.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
)

// ErrServerDisabled is returned when loading a server that is not enabled.
var ErrServerDisabled = errors.New("server disabled")

// Loader fetches snapshots through the shared fetch client.
type Loader struct {
	client *fetch.Client
}

// NewLoader creates a Loader.
func NewLoader(client *fetch.Client) *Loader {
	return &Loader{client: client}
}

// Load fetches and decodes one server's snapshot. The returned snapshot's
// Server is always the configured server; the snapshot's own config block
// never overrides configured priority.
func (l *Loader) Load(ctx context.Context, server models.ServerConfig) (*models.Snapshot, error) {
	if !server.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrServerDisabled, server.ID)
	}

	var snap models.Snapshot
	if err := l.client.GetJSON(ctx, server, "snapshot", server.SnapshotURL(), &snap); err != nil {
		metrics.SnapshotLoadErrors.WithLabelValues(server.ID).Inc()
		return nil, fmt.Errorf("load snapshot %s: %w", server.ID, err)
	}
	snap.Server = server
	snap.FetchedAt = time.Now().UTC()

	if snap.Config.Priority != 0 && snap.Config.Priority != server.Priority {
		logging.Ctx(ctx).Warn().Str("server", server.ID).Int("configured", server.Priority).
			Int("advertised", snap.Config.Priority).Msg("Snapshot advertises a different priority; using configured value")
	}

	episodes := 0
	for _, show := range snap.TV {
		for _, season := range show.Seasons {
			episodes += len(season.Episodes)
		}
	}
	metrics.SnapshotEntities.WithLabelValues(server.ID, string(models.MediaTypeMovie)).Set(float64(len(snap.Movies)))
	metrics.SnapshotEntities.WithLabelValues(server.ID, string(models.MediaTypeTVShow)).Set(float64(len(snap.TV)))
	metrics.SnapshotEntities.WithLabelValues(server.ID, string(models.MediaTypeEpisode)).Set(float64(episodes))

	logging.Ctx(ctx).Debug().Str("server", server.ID).Int("movies", len(snap.Movies)).
		Int("shows", len(snap.TV)).Int("episodes", episodes).Msg("Snapshot loaded")
	return &snap, nil
}

// Result is the outcome of loading every enabled server.
type Result struct {
	// Snapshots holds the loaded snapshots ordered by priority, then ID.
	Snapshots []*models.Snapshot

	// Failed maps server ID to its load error.
	Failed map[string]error
}

// Complete reports whether every enabled server loaded.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}

// LoadAll loads every enabled server concurrently. Disabled servers are skipped.
func (l *Loader) LoadAll(ctx context.Context, servers []models.ServerConfig) *Result {
	res := &Result{Failed: make(map[string]error)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, server := range servers {
		if !server.Enabled {
			continue
		}
		wg.Add(1)
		go func(server models.ServerConfig) {
			defer wg.Done()
			snap, err := l.Load(ctx, server)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[server.ID] = err
				logging.Ctx(ctx).Warn().Err(err).Str("server", server.ID).Msg("Snapshot load failed")
				return
			}
			res.Snapshots = append(res.Snapshots, snap)
		}(server)
	}
	wg.Wait()

	SortByPriority(res.Snapshots)
	return res
}

// SortByPriority orders snapshots most authoritative first, breaking ties by server ID.
func SortByPriority(snaps []*models.Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i].Server, snaps[j].Server
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
}
