// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package orphans

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/probe"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/repository/repotest"
)

func episodes(keys ...string) map[string]models.EpisodeSource {
	out := make(map[string]models.EpisodeSource, len(keys))
	for _, k := range keys {
		out[k] = models.EpisodeSource{ContentSource: models.ContentSource{Video: "tv/" + k}}
	}
	return out
}

// cascadeFixture: Alien and Dark are gone everywhere, Severance lost
// S01E02 and all of season 2.
func cascadeFixture() (Catalog, []*models.Snapshot) {
	catalog := Catalog{
		Movies: []*models.Movie{repotest.SampleMovie("Alien"), repotest.SampleMovie("Heat")},
		Shows:  []*models.TVShow{repotest.SampleShow("Dark"), repotest.SampleShow("Severance")},
	}
	a := &models.Snapshot{
		Server: models.ServerConfig{ID: "a", Priority: 1, BaseURL: "http://a"},
		Movies: map[string]models.MovieSource{"Heat": {}},
		TV: map[string]models.ShowSource{
			"Severance": {Seasons: map[string]models.SeasonSource{
				"Season 1": {Episodes: episodes("S01E01.mkv")},
			}},
		},
	}
	b := &models.Snapshot{
		Server: models.ServerConfig{ID: "b", Priority: 2, BaseURL: "http://b"},
		TV: map[string]models.ShowSource{
			"Severance": {Seasons: map[string]models.SeasonSource{
				"Season 1": {Episodes: map[string]models.EpisodeSource{}},
			}},
		},
	}
	return catalog, []*models.Snapshot{a, b}
}

func TestDetectCascades(t *testing.T) {
	t.Parallel()

	catalog, snaps := cascadeFixture()
	report, err := Detect(context.Background(), catalog, snaps, Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := &Report{
		MoviesToRemove: []string{"Alien"},
		ShowsToRemove:  []string{"Dark"},
		SeasonsToRemove: []SeasonRef{
			{ShowKey: "Dark", SeasonNumber: 1},
			{ShowKey: "Dark", SeasonNumber: 2},
			{ShowKey: "Severance", SeasonNumber: 2},
		},
		EpisodesToRemove: []EpisodeRef{
			{ShowKey: "Dark", SeasonNumber: 1, FileKey: "S01E01.mkv"},
			{ShowKey: "Dark", SeasonNumber: 1, FileKey: "S01E02.mkv"},
			{ShowKey: "Dark", SeasonNumber: 2, FileKey: "S02E01.mkv"},
			{ShowKey: "Severance", SeasonNumber: 1, FileKey: "S01E02.mkv"},
			{ShowKey: "Severance", SeasonNumber: 2, FileKey: "S02E01.mkv"},
		},
	}
	if !reflect.DeepEqual(report, want) {
		t.Errorf("Detect() =\n%+v\nwant\n%+v", report, want)
	}
}

func TestDetectNothingToRemove(t *testing.T) {
	t.Parallel()

	catalog := Catalog{Movies: []*models.Movie{repotest.SampleMovie("Heat")}}
	snaps := []*models.Snapshot{{Movies: map[string]models.MovieSource{"Heat": {}}}}
	report, err := Detect(context.Background(), catalog, snaps, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Empty() {
		t.Errorf("Detect() = %+v, want empty", report)
	}
}

func TestDetectPrunesChildlessEntries(t *testing.T) {
	t.Parallel()

	empty := &models.TVShow{Key: "Empty"}
	dark := &models.TVShow{Key: "Dark"}
	dark.EnsureSeason(1)
	severance := repotest.SampleShow("Severance")
	severance.EnsureSeason(3)

	// Every stored entry is still listed; childless ones go regardless.
	snaps := []*models.Snapshot{{
		Server: models.ServerConfig{ID: "a", BaseURL: "http://a"},
		TV: map[string]models.ShowSource{
			"Empty": {},
			"Dark":  {Seasons: map[string]models.SeasonSource{"Season 1": {}}},
			"Severance": {Seasons: map[string]models.SeasonSource{
				"Season 1": {Episodes: episodes("S01E01.mkv", "S01E02.mkv")},
				"Season 2": {Episodes: episodes("S02E01.mkv")},
				"Season 3": {},
			}},
		},
	}}
	catalog := Catalog{Shows: []*models.TVShow{empty, dark, severance}}
	report, err := Detect(context.Background(), catalog, snaps, Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := &Report{
		ShowsToRemove: []string{"Dark", "Empty"},
		SeasonsToRemove: []SeasonRef{
			{ShowKey: "Dark", SeasonNumber: 1},
			{ShowKey: "Severance", SeasonNumber: 3},
		},
	}
	if !reflect.DeepEqual(report, want) {
		t.Errorf("Detect() =\n%+v\nwant\n%+v", report, want)
	}
}

func TestDetectEpisodeWithoutVideoIsUnbacked(t *testing.T) {
	t.Parallel()

	catalog := Catalog{Shows: []*models.TVShow{repotest.SampleShow("Severance")}}
	snaps := []*models.Snapshot{{
		Server: models.ServerConfig{ID: "a", BaseURL: "http://a"},
		TV: map[string]models.ShowSource{
			"Severance": {Seasons: map[string]models.SeasonSource{
				"Season 1": {Episodes: map[string]models.EpisodeSource{
					"S01E01.mkv": {Title: "Good News About Hell"},
					"S01E02.mkv": {ContentSource: models.ContentSource{Video: "tv/S01E02.mkv"}},
				}},
				"Season 2": {Episodes: map[string]models.EpisodeSource{"S02E01.mkv": {}}},
			}},
		},
	}}
	report, err := Detect(context.Background(), catalog, snaps, Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := &Report{
		SeasonsToRemove: []SeasonRef{{ShowKey: "Severance", SeasonNumber: 2}},
		EpisodesToRemove: []EpisodeRef{
			{ShowKey: "Severance", SeasonNumber: 1, FileKey: "S01E01.mkv"},
			{ShowKey: "Severance", SeasonNumber: 2, FileKey: "S02E01.mkv"},
		},
	}
	if !reflect.DeepEqual(report, want) {
		t.Errorf("Detect() =\n%+v\nwant\n%+v", report, want)
	}
}

func TestDetectProbeVerify(t *testing.T) {
	t.Parallel()

	catalog := Catalog{Movies: []*models.Movie{repotest.SampleMovie("Heat"), repotest.SampleMovie("Ronin")}}
	snaps := []*models.Snapshot{{
		Server: models.ServerConfig{ID: "a", BaseURL: "http://a"},
		Movies: map[string]models.MovieSource{
			"Heat":  {ContentSource: models.ContentSource{Video: "Heat/Heat.mkv"}},
			"Ronin": {},
		},
	}}

	tests := []struct {
		name   string
		prober probe.Prober
		want   []string
	}{
		{"unreachable video", probe.Static{}, []string{"Heat"}},
		{"reachable video", probe.Static{"http://a/Heat/Heat.mkv": true}, nil},
		{"no answer keeps the movie", inconclusiveProber{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report, err := Detect(context.Background(), catalog, snaps, Options{Prober: tt.prober})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(report.MoviesToRemove, tt.want) {
				t.Errorf("MoviesToRemove = %v, want %v", report.MoviesToRemove, tt.want)
			}
		})
	}
}

// inconclusiveProber has no definitive answer for any URL, like a prober
// whose server's breaker is open.
type inconclusiveProber struct{}

func (inconclusiveProber) Reachable(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

type failingProber struct{}

func (failingProber) Reachable(context.Context, []string) (map[string]bool, error) {
	return nil, errors.New("probe down")
}

func TestDetectProbeError(t *testing.T) {
	t.Parallel()

	catalog := Catalog{Movies: []*models.Movie{repotest.SampleMovie("Heat")}}
	snaps := []*models.Snapshot{{Movies: map[string]models.MovieSource{
		"Heat": {ContentSource: models.ContentSource{Video: "http://a/Heat.mkv"}},
	}}}
	if _, err := Detect(context.Background(), catalog, snaps, Options{Prober: failingProber{}}); err == nil {
		t.Error("Detect() error = nil, want probe error")
	}
}

type recordingCache struct {
	mu       sync.Mutex
	patterns []string
}

func (c *recordingCache) Invalidate(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	return 1, nil
}

func (c *recordingCache) has(p string) bool {
	for _, got := range c.patterns {
		if got == p {
			return true
		}
	}
	return false
}

func TestApplyCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog, snaps := cascadeFixture()
	repo := repository.NewMemory()
	for _, m := range catalog.Movies {
		if err := repo.UpsertMovie(ctx, m.Key, m); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range catalog.Shows {
		if err := repo.UpsertShow(ctx, s.Key, s); err != nil {
			t.Fatal(err)
		}
	}

	report, err := Detect(ctx, catalog, snaps, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rc := &recordingCache{}
	res := NewApplier(repo, rc).Apply(ctx, report)
	if err := res.Err(); err != nil {
		t.Fatalf("Apply() errors = %v", err)
	}

	// Dark's seasons and Severance's season 2 episode are implied by their parents.
	if res.Shows != 1 || res.Seasons != 1 || res.Episodes != 1 || res.Movies != 1 {
		t.Errorf("Apply() = %+v, want 1 show, 1 season, 1 episode, 1 movie", res)
	}

	if _, err := repo.FindShow(ctx, "Dark"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindShow(Dark) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindMovie(ctx, "Alien"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindMovie(Alien) error = %v, want ErrNotFound", err)
	}
	sev, err := repo.FindShow(ctx, "Severance")
	if err != nil {
		t.Fatal(err)
	}
	if len(sev.Seasons) != 1 || sev.Seasons[0].SeasonNumber != 1 {
		t.Fatalf("Severance seasons = %+v", sev.Seasons)
	}
	if eps := sev.Seasons[0].Episodes; len(eps) != 1 || eps[0].FileKey != "S01E01.mkv" {
		t.Errorf("Severance season 1 episodes = %+v", eps)
	}

	for _, p := range []string{"*/Dark/*", "*/Alien/*", "*/Severance/Season 2/*", "*/Severance/Season%202/*", "*/Severance/Season 1/S01E02.mkv*"} {
		if !rc.has(p) {
			t.Errorf("pattern %q not invalidated; got %v", p, rc.patterns)
		}
	}
	if res.Invalidated != len(rc.patterns) {
		t.Errorf("Invalidated = %d, want %d", res.Invalidated, len(rc.patterns))
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemory()
	report := &Report{MoviesToRemove: []string{"Gone"}, ShowsToRemove: []string{"Gone"}}

	res := NewApplier(repo).Apply(ctx, report)
	if err := res.Err(); err != nil {
		t.Fatalf("Apply() on missing entries errors = %v", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", repo.Writes())
	}
}

func TestApplyCollectsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemory()
	_ = repo.Close()

	res := NewApplier(repo).Apply(ctx, &Report{MoviesToRemove: []string{"Heat"}})
	if !errors.Is(res.Err(), repository.ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", res.Err())
	}
	if res.Movies != 0 {
		t.Errorf("Movies = %d, want 0", res.Movies)
	}
}
