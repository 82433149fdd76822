// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/models"
)

func newTestClient(ts *httptest.Server) *fetch.Client {
	cfg := fetch.DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.MaxRetries = 0
	cfg.Breaker.Timeout = time.Hour
	return fetch.NewClient(cfg, ts.Client())
}

func TestHTTPProberReachable(t *testing.T) {
	t.Parallel()

	var heads atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		heads.Add(1)
		switch r.URL.Path {
		case "/live.mkv":
			w.WriteHeader(http.StatusOK)
		case "/gone.mkv":
			http.NotFound(w, r)
		case "/removed.mkv":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	servers := []models.ServerConfig{{ID: "a", BaseURL: ts.URL, Enabled: true}}
	p := NewHTTPProber(newTestClient(ts), servers, nil, 2)

	live, gone, removed, broken := ts.URL+"/live.mkv", ts.URL+"/gone.mkv", ts.URL+"/removed.mkv", ts.URL+"/broken.mkv"
	got, err := p.Reachable(context.Background(), []string{live, gone, removed, broken, live, ""})
	if err != nil {
		t.Fatalf("Reachable() error = %v", err)
	}

	// A 503 is no answer about the file; broken is left out.
	want := map[string]bool{live: true, gone: false, removed: false}
	if len(got) != len(want) {
		t.Fatalf("Reachable() = %v, want %v", got, want)
	}
	for u, w := range want {
		if got[u] != w {
			t.Errorf("Reachable()[%s] = %v, want %v", u, got[u], w)
		}
	}
	if _, ok := got[broken]; ok {
		t.Errorf("Reachable()[%s] present, want no answer", broken)
	}
	if n := heads.Load(); n != 4 {
		t.Errorf("HEAD requests = %d, want 4 (duplicates collapsed)", n)
	}
}

func TestHTTPProberCachesResults(t *testing.T) {
	t.Parallel()

	var heads atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		heads.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := cache.New("probe-test", time.Minute)
	defer c.Close()

	p := NewHTTPProber(newTestClient(ts), nil, c, 0)
	u := ts.URL + "/a.mkv"

	for i := 0; i < 3; i++ {
		got, err := p.Reachable(context.Background(), []string{u})
		if err != nil || !got[u] {
			t.Fatalf("Reachable() = %v, %v", got, err)
		}
	}
	if n := heads.Load(); n != 1 {
		t.Errorf("HEAD requests = %d, want 1", n)
	}

	if n := p.Invalidate(ts.URL + "/*"); n != 1 {
		t.Errorf("Invalidate() = %d, want 1", n)
	}
	if _, err := p.Reachable(context.Background(), []string{u}); err != nil {
		t.Fatal(err)
	}
	if n := heads.Load(); n != 2 {
		t.Errorf("HEAD requests after invalidate = %d, want 2", n)
	}
}

func TestHTTPProberOpenBreakerIsInconclusive(t *testing.T) {
	t.Parallel()

	var failing atomic.Bool
	failing.Store(true)
	var heads atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		heads.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := fetch.DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.MaxRetries = 0
	cfg.Breaker.MinRequests = 1
	cfg.Breaker.FailureRatio = 0.5
	cfg.Breaker.Timeout = time.Hour
	client := fetch.NewClient(cfg, ts.Client())

	c := cache.New("probe-breaker-test", time.Minute)
	defer c.Close()
	servers := []models.ServerConfig{{ID: "flaky", BaseURL: ts.URL, Enabled: true}}
	p := NewHTTPProber(client, servers, c, 1)

	trip, movie := ts.URL+"/trip.mkv", ts.URL+"/Heat.mkv"
	if got, err := p.Reachable(context.Background(), []string{trip}); err != nil || len(got) != 0 {
		t.Fatalf("Reachable(trip) = %v, %v, want no answer", got, err)
	}
	if state := client.BreakerState("flaky"); state != "open" {
		t.Fatalf("BreakerState() = %q, want open", state)
	}

	// The server recovered, but the open breaker rejects the request.
	failing.Store(false)
	got, err := p.Reachable(context.Background(), []string{movie})
	if err != nil {
		t.Fatalf("Reachable() error = %v", err)
	}
	if _, ok := got[movie]; ok {
		t.Errorf("Reachable()[%s] = %v, want no answer while the breaker is open", movie, got[movie])
	}
	if n := heads.Load(); n != 1 {
		t.Errorf("HEAD requests = %d, want 1", n)
	}
	if _, ok := c.Get(cacheKey(movie)); ok {
		t.Error("inconclusive result was cached")
	}
}

func TestHTTPProberConnectionRefused(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	u := ts.URL + "/Heat.mkv"
	client := newTestClient(ts)
	ts.Close()

	got, err := NewHTTPProber(client, nil, nil, 1).Reachable(context.Background(), []string{u})
	if err != nil {
		t.Fatalf("Reachable() error = %v", err)
	}
	if reachable, ok := got[u]; !ok || reachable {
		t.Errorf("Reachable()[%s] = %v (answered %v), want unreachable", u, reachable, ok)
	}
}

func TestServerFor(t *testing.T) {
	t.Parallel()

	p := NewHTTPProber(nil, []models.ServerConfig{
		{ID: "root", BaseURL: "https://media.example"},
		{ID: "nested", BaseURL: "https://media.example/library/"},
	}, nil, 1)

	tests := []struct {
		url  string
		want string
	}{
		{"https://media.example/movies/a.mkv", "root"},
		{"https://media.example/library/a.mkv", "nested"},
		{"https://cdn.example/a.mkv", "probe:cdn.example"},
	}
	for _, tt := range tests {
		if got := p.serverFor(tt.url).ID; got != tt.want {
			t.Errorf("serverFor(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	got, err := Static{"a": true}.Reachable(context.Background(), []string{"a", "b"})
	if err != nil || !got["a"] || got["b"] {
		t.Errorf("Static.Reachable() = %v, %v", got, err)
	}
}
