// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/catalogd/internal/facets"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

// ChangeCreated is the change path recorded when a season or episode is
// added to a show.
const ChangeCreated = "created"

// Dependencies are the collaborators of the default strategies.
type Dependencies struct {
	Metadata          facets.MetadataFetcher
	Placeholders      facets.PlaceholderCache
	PlaceholderSource facets.PlaceholderSource
	HashShortCircuit  bool
}

// DefaultRegistry registers one FacetStrategy per operation.
func DefaultRegistry(deps Dependencies) *Registry {
	return NewRegistry(
		NewFacetStrategy("metadata", models.OperationMetadata,
			facets.NewMetadata(deps.Metadata, deps.HashShortCircuit)),
		NewFacetStrategy("assets", models.OperationAssets,
			facets.NewArtwork(deps.Placeholders, deps.PlaceholderSource)),
		NewFacetStrategy("content", models.OperationContent,
			facets.NewVideo(), facets.NewCaptions(), facets.NewChapters()),
	)
}

// FacetStrategy runs a fixed list of aggregators for one operation. For
// shows it first adds the seasons and episodes the calling server lists,
// then reconciles the show, every season and every episode.
type FacetStrategy struct {
	name        string
	op          models.Operation
	aggregators []facets.Aggregator
}

// NewFacetStrategy creates a strategy for op.
func NewFacetStrategy(name string, op models.Operation, aggregators ...facets.Aggregator) *FacetStrategy {
	return &FacetStrategy{name: name, op: op, aggregators: aggregators}
}

// Name implements Strategy.
func (s *FacetStrategy) Name() string { return s.name }

// Supports implements Strategy.
func (s *FacetStrategy) Supports(mediaType models.MediaType, op models.Operation) bool {
	if op != s.op {
		return false
	}
	return mediaType == models.MediaTypeMovie || mediaType == models.MediaTypeTVShow
}

// Execute implements Strategy.
func (s *FacetStrategy) Execute(ctx context.Context, req *Request) ([]models.Change, error) {
	switch e := req.Entity.(type) {
	case *models.Movie:
		return s.run(ctx, req, e, movieSources(req.Snapshots, e.Key))
	case *models.TVShow:
		return s.executeShow(ctx, req, e)
	default:
		return nil, fmt.Errorf("%s strategy: unsupported entity %T", s.name, req.Entity)
	}
}

func (s *FacetStrategy) executeShow(ctx context.Context, req *Request, show *models.TVShow) ([]models.Change, error) {
	changes := ensureNested(show, req.Snapshots, req.Server)

	shown, err := s.run(ctx, req, show, showSources(req.Snapshots, show.Key))
	changes = append(changes, shown...)
	if err != nil {
		return changes, err
	}

	for _, season := range show.Seasons {
		got, err := s.run(ctx, req, season, seasonSources(req.Snapshots, show.Key, season.SeasonNumber))
		changes = append(changes, got...)
		if err != nil {
			return changes, err
		}
		for _, ep := range season.Episodes {
			got, err := s.run(ctx, req, ep, episodeSources(req.Snapshots, show.Key, season.SeasonNumber, ep.FileKey))
			changes = append(changes, got...)
			if err != nil {
				return changes, err
			}
		}
	}
	return changes, nil
}

// run applies every aggregator to entity in order. An entity no snapshot
// lists is left alone.
func (s *FacetStrategy) run(ctx context.Context, req *Request, entity models.Entity, sources []facets.Source) ([]models.Change, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	in := &facets.Input{
		Entity:       entity,
		Server:       req.Server,
		Availability: req.Availability,
		Sources:      sources,
	}

	var changes []models.Change
	for _, agg := range s.aggregators {
		u, err := agg.Aggregate(ctx, in)
		if err != nil {
			return changes, err
		}
		applied, err := facets.Apply(entity, u)
		changes = append(changes, applied...)
		if err != nil {
			return changes, fmt.Errorf("apply %s to %s: %w", agg.Name(), entity.EntityKey(), err)
		}
	}
	return changes, nil
}

// ensureNested adds the seasons and episodes server lists for show. Only
// episodes with a video are added, and a season is added only when it has
// one, so nothing created here is pruned by the next orphan cleanup.
// Existing entries are never removed here; that is orphan cleanup's job.
func ensureNested(show *models.TVShow, snapshots []*models.Snapshot, server models.ServerConfig) []models.Change {
	snap := ownSnapshot(snapshots, server.ID)
	if snap == nil {
		return nil
	}
	src, ok := snap.Show(show.Key)
	if !ok {
		return nil
	}

	var changes []models.Change
	created := func(key string) {
		changes = append(changes, models.Change{EntityKey: key, Path: ChangeCreated, ServerID: server.ID})
	}
	for _, n := range src.SeasonNumbers() {
		seasonSrc, _ := src.Season(n)
		fileKeys := seasonSrc.BackedEpisodeKeys()
		if len(fileKeys) == 0 {
			continue
		}
		season, isNew := show.EnsureSeason(n)
		if isNew {
			created(season.EntityKey())
		}
		added := false
		for _, fileKey := range fileKeys {
			ep, isNew := season.EnsureEpisode(fileKey)
			if !isNew {
				continue
			}
			if num := seasonSrc.Episodes[fileKey].EpisodeNumber; num > 0 {
				ep.EpisodeNumber = num
			}
			created(ep.EntityKey())
			added = true
		}
		if added {
			sortEpisodes(season.Episodes)
		}
	}
	if len(changes) > 0 {
		sort.SliceStable(show.Seasons, func(i, j int) bool {
			return show.Seasons[i].SeasonNumber < show.Seasons[j].SeasonNumber
		})
	}
	return changes
}

func sortEpisodes(episodes []*models.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i], episodes[j]
		if a.EpisodeNumber != b.EpisodeNumber {
			return a.EpisodeNumber < b.EpisodeNumber
		}
		return a.FileKey < b.FileKey
	})
}

func ownSnapshot(snapshots []*models.Snapshot, serverID string) *models.Snapshot {
	for _, snap := range snapshots {
		if snap != nil && snap.Server.ID == serverID {
			return snap
		}
	}
	return nil
}

// movieSources collects every server's candidates for a movie, in snapshot order.
func movieSources(snapshots []*models.Snapshot, key string) []facets.Source {
	var out []facets.Source
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if src, ok := snap.Movie(key); ok {
			out = append(out, facets.Source{Server: snap.Server, Values: snapshot.MovieCandidates(snap.Server, src)})
		}
	}
	return out
}

func showSources(snapshots []*models.Snapshot, key string) []facets.Source {
	var out []facets.Source
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if src, ok := snap.Show(key); ok {
			out = append(out, facets.Source{Server: snap.Server, Values: snapshot.ShowCandidates(snap.Server, src)})
		}
	}
	return out
}

func seasonSources(snapshots []*models.Snapshot, showKey string, number int) []facets.Source {
	var out []facets.Source
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		show, ok := snap.Show(showKey)
		if !ok {
			continue
		}
		if src, ok := show.Season(number); ok {
			out = append(out, facets.Source{Server: snap.Server, Values: snapshot.SeasonCandidates(snap.Server, src)})
		}
	}
	return out
}

func episodeSources(snapshots []*models.Snapshot, showKey string, seasonNumber int, fileKey string) []facets.Source {
	var out []facets.Source
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if src, ok := snap.Episode(showKey, seasonNumber, fileKey); ok {
			out = append(out, facets.Source{Server: snap.Server, Values: snapshot.EpisodeCandidates(snap.Server, src)})
		}
	}
	return out
}
