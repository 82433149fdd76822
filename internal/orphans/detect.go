// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package orphans finds catalog entries no source server supplies any more
// and removes them.
//
// Detection is hierarchical. An episode is unbacked when no snapshot lists
// it with a video under the same show and season. A season goes when it has
// no episodes or every one of its episodes goes, and a show goes when it has
// no seasons or every one of its seasons goes.
package orphans

import (
	"context"
	"sort"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/probe"
)

// Catalog is the stored side of the comparison.
type Catalog struct {
	Movies []*models.Movie
	Shows  []*models.TVShow
}

// SeasonRef names one stored season.
type SeasonRef struct {
	ShowKey      string `json:"showKey"`
	SeasonNumber int    `json:"seasonNumber"`
}

// Key returns the season entity key.
func (r SeasonRef) Key() string {
	return models.SeasonKey(r.ShowKey, r.SeasonNumber)
}

// EpisodeRef names one stored episode.
type EpisodeRef struct {
	ShowKey      string `json:"showKey"`
	SeasonNumber int    `json:"seasonNumber"`
	FileKey      string `json:"fileKey"`
}

// Key returns the episode entity key.
func (r EpisodeRef) Key() string {
	return models.EpisodeKey(r.ShowKey, r.SeasonNumber, r.FileKey)
}

func (r EpisodeRef) season() SeasonRef {
	return SeasonRef{ShowKey: r.ShowKey, SeasonNumber: r.SeasonNumber}
}

// Report lists everything to remove. Seasons and episodes belonging to a
// removed show are listed as well; Apply skips what a parent removal implies.
type Report struct {
	MoviesToRemove   []string     `json:"moviesToRemove"`
	ShowsToRemove    []string     `json:"showsToRemove"`
	SeasonsToRemove  []SeasonRef  `json:"seasonsToRemove"`
	EpisodesToRemove []EpisodeRef `json:"episodesToRemove"`
}

// Empty reports whether there is nothing to remove.
func (r *Report) Empty() bool {
	return len(r.MoviesToRemove) == 0 && len(r.ShowsToRemove) == 0 &&
		len(r.SeasonsToRemove) == 0 && len(r.EpisodesToRemove) == 0
}

// Options tunes detection.
type Options struct {
	// Prober, when set, demotes movies and episodes whose every supplied
	// video URL is unreachable to unbacked.
	Prober probe.Prober
}

type videoRef struct {
	server models.ServerConfig
	rel    string
}

// Detect compares catalog against snapshots. Callers must only act on the
// report when every enabled server's snapshot loaded; a missing snapshot
// looks exactly like a server that dropped everything. The returned error
// comes from the prober only.
func Detect(ctx context.Context, catalog Catalog, snapshots []*models.Snapshot, opts Options) (*Report, error) {
	report := &Report{}

	// Candidate video URLs for presence checks that need a probe.
	movieVideos := make(map[string][]videoRef)
	episodeVideos := make(map[EpisodeRef][]videoRef)

	moviePresent := func(key string) bool {
		found := false
		for _, snap := range snapshots {
			src, ok := snap.Movie(key)
			if !ok {
				continue
			}
			found = true
			movieVideos[key] = append(movieVideos[key], videoRef{snap.Server, src.Video})
		}
		return found
	}

	for _, m := range catalog.Movies {
		if !moviePresent(m.Key) {
			report.MoviesToRemove = append(report.MoviesToRemove, m.Key)
			delete(movieVideos, m.Key)
		}
	}

	episodePresent := func(ref EpisodeRef) bool {
		found := false
		for _, snap := range snapshots {
			src, ok := snap.Episode(ref.ShowKey, ref.SeasonNumber, ref.FileKey)
			if !ok || !src.Backed() {
				continue
			}
			found = true
			episodeVideos[ref] = append(episodeVideos[ref], videoRef{snap.Server, src.Video})
		}
		return found
	}

	// Episodes first; the probe may demote more below, so the season and
	// show cascade is computed after it.
	for _, show := range catalog.Shows {
		for _, season := range show.Seasons {
			for _, ep := range season.Episodes {
				ref := EpisodeRef{ShowKey: show.Key, SeasonNumber: season.SeasonNumber, FileKey: ep.FileKey}
				if !episodePresent(ref) {
					report.EpisodesToRemove = append(report.EpisodesToRemove, ref)
					delete(episodeVideos, ref)
				}
			}
		}
	}

	if opts.Prober != nil {
		if err := demoteUnreachable(ctx, opts.Prober, report, movieVideos, episodeVideos); err != nil {
			return nil, err
		}
	}

	removedEpisodes := make(map[EpisodeRef]bool, len(report.EpisodesToRemove))
	for _, ref := range report.EpisodesToRemove {
		removedEpisodes[ref] = true
	}

	for _, show := range catalog.Shows {
		removedSeasons := 0
		for _, season := range show.Seasons {
			ref := SeasonRef{ShowKey: show.Key, SeasonNumber: season.SeasonNumber}
			gone := true
			for _, ep := range season.Episodes {
				if !removedEpisodes[EpisodeRef{ShowKey: show.Key, SeasonNumber: season.SeasonNumber, FileKey: ep.FileKey}] {
					gone = false
					break
				}
			}
			if gone {
				report.SeasonsToRemove = append(report.SeasonsToRemove, ref)
				removedSeasons++
			}
		}

		if removedSeasons == len(show.Seasons) {
			report.ShowsToRemove = append(report.ShowsToRemove, show.Key)
		}
	}

	sortReport(report)
	return report, nil
}

// demoteUnreachable moves movies and episodes whose every video URL the
// probe reported gone into the report. Entries with any supplier that gave no video
// URL stay.
func demoteUnreachable(ctx context.Context, prober probe.Prober, report *Report, movies map[string][]videoRef, episodes map[EpisodeRef][]videoRef) error {
	var urls []string
	collect := func(refs []videoRef) ([]string, bool) {
		out := make([]string, 0, len(refs))
		for _, r := range refs {
			if r.rel == "" {
				return nil, false
			}
			out = append(out, r.server.ResolveURL(r.rel))
		}
		return out, true
	}

	movieURLs := make(map[string][]string)
	for key, refs := range movies {
		if u, ok := collect(refs); ok && len(u) > 0 {
			movieURLs[key] = u
			urls = append(urls, u...)
		}
	}
	episodeURLs := make(map[EpisodeRef][]string)
	for ref, refs := range episodes {
		if u, ok := collect(refs); ok && len(u) > 0 {
			episodeURLs[ref] = u
			urls = append(urls, u...)
		}
	}
	if len(urls) == 0 {
		return nil
	}

	reachable, err := prober.Reachable(ctx, urls)
	if err != nil {
		return err
	}
	// URLs without an answer keep their entry.
	anyReachable := func(us []string) bool {
		for _, u := range us {
			if ok, answered := reachable[u]; ok || !answered {
				return true
			}
		}
		return false
	}

	for key, us := range movieURLs {
		if !anyReachable(us) {
			report.MoviesToRemove = append(report.MoviesToRemove, key)
		}
	}
	for ref, us := range episodeURLs {
		if !anyReachable(us) {
			report.EpisodesToRemove = append(report.EpisodesToRemove, ref)
		}
	}
	return nil
}

func sortReport(r *Report) {
	sort.Strings(r.MoviesToRemove)
	sort.Strings(r.ShowsToRemove)
	sort.Slice(r.SeasonsToRemove, func(i, j int) bool {
		a, b := r.SeasonsToRemove[i], r.SeasonsToRemove[j]
		if a.ShowKey != b.ShowKey {
			return a.ShowKey < b.ShowKey
		}
		return a.SeasonNumber < b.SeasonNumber
	})
	sort.Slice(r.EpisodesToRemove, func(i, j int) bool {
		a, b := r.EpisodesToRemove[i], r.EpisodesToRemove[j]
		if a.ShowKey != b.ShowKey {
			return a.ShowKey < b.ShowKey
		}
		if a.SeasonNumber != b.SeasonNumber {
			return a.SeasonNumber < b.SeasonNumber
		}
		return a.FileKey < b.FileKey
	})
}
