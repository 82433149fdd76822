// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package snapshot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

const heatSnapshot = `{
  "movies": {
    "Heat (1995)": {
      "title": "Heat",
      "video": "movies/Heat (1995)/Heat.mkv",
      "poster": "movies/Heat (1995)/poster.jpg",
      "subtitles": {"English": {"srcLang": "en", "url": "movies/Heat (1995)/en.vtt"}}
    }
  },
  "tv": {
    "Severance": {
      "seasons": {
        "Season 1": {"episodes": {"S01E01.mkv": {"title": "Good News About Hell"}, "S01E02.mkv": {}}}
      }
    }
  },
  "config": {"priority": 9}
}`

func newTestLoader(ts *httptest.Server) *Loader {
	cfg := fetch.DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.MaxRetries = 0
	cfg.Breaker.Timeout = time.Hour
	return NewLoader(fetch.NewClient(cfg, ts.Client()))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != models.DefaultSnapshotPath {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(heatSnapshot))
	}))
	defer ts.Close()

	server := models.ServerConfig{ID: "a", Priority: 2, BaseURL: ts.URL, Enabled: true}
	snap, err := newTestLoader(ts).Load(context.Background(), server)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if snap.Server.ID != "a" || snap.Server.Priority != 2 {
		t.Errorf("Server = %+v, want configured server with priority 2", snap.Server)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
	movie, ok := snap.Movie("Heat (1995)")
	if !ok || movie.Title != "Heat" {
		t.Fatalf("Movie(Heat) = %+v, %v", movie, ok)
	}
	if _, ok := snap.Episode("Severance", 1, "S01E02.mkv"); !ok {
		t.Error("Episode(Severance, 1, S01E02.mkv) not found")
	}
}

func TestLoadDisabled(t *testing.T) {
	t.Parallel()

	l := NewLoader(fetch.NewClient(fetch.DefaultConfig(), nil))
	_, err := l.Load(context.Background(), models.ServerConfig{ID: "off"})
	if !errors.Is(err, ErrServerDisabled) {
		t.Errorf("Load() error = %v, want ErrServerDisabled", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"movies": [`))
	}))
	defer ts.Close()

	server := models.ServerConfig{ID: "bad", BaseURL: ts.URL, Enabled: true}
	_, err := newTestLoader(ts).Load(context.Background(), server)
	var verr *syncerr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Load() error = %v, want *syncerr.ValidationError", err)
	}
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a" + models.DefaultSnapshotPath, "/b" + models.DefaultSnapshotPath:
			_, _ = w.Write([]byte(heatSnapshot))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer ts.Close()

	servers := []models.ServerConfig{
		{ID: "b", Priority: 1, BaseURL: ts.URL, APIURL: ts.URL + "/b", Enabled: true},
		{ID: "a", Priority: 1, BaseURL: ts.URL, APIURL: ts.URL + "/a", Enabled: true},
		{ID: "broken", Priority: 0, BaseURL: ts.URL, APIURL: ts.URL + "/broken", Enabled: true},
		{ID: "off", Priority: 0, BaseURL: ts.URL, Enabled: false},
	}

	res := newTestLoader(ts).LoadAll(context.Background(), servers)

	if res.Complete() {
		t.Error("Complete() = true with a failing server")
	}
	if _, ok := res.Failed["broken"]; !ok || len(res.Failed) != 1 {
		t.Errorf("Failed = %v, want only broken", res.Failed)
	}
	if len(res.Snapshots) != 2 {
		t.Fatalf("len(Snapshots) = %d, want 2", len(res.Snapshots))
	}
	if res.Snapshots[0].Server.ID != "a" || res.Snapshots[1].Server.ID != "b" {
		t.Errorf("order = %s, %s; want a, b", res.Snapshots[0].Server.ID, res.Snapshots[1].Server.ID)
	}
}
