// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.Breaker.MinRequests = 3
	cfg.Breaker.Timeout = time.Hour
	return cfg
}

func testServer(id, url string) models.ServerConfig {
	return models.ServerConfig{ID: id, Priority: 1, BaseURL: url, Enabled: true}
}

func TestClientDo(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(`{"title":"Heat"}`))
		case "/missing":
			http.NotFound(w, r)
		case "/boom":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	c := NewClient(testConfig(), ts.Client())
	server := testServer("a", ts.URL)

	tests := []struct {
		name       string
		path       string
		wantErr    error
		wantStatus int
		network    bool
	}{
		{"success", "/ok", nil, http.StatusOK, false},
		{"not found", "/missing", ErrNotFound, http.StatusNotFound, false},
		{"server error", "/boom", ErrUnexpectedStatus, http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.Do(context.Background(), server, Request{URL: ts.URL + tt.path, Kind: "metadata"})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var netErr *syncerr.NetworkError
			if got := errors.As(err, &netErr); got != tt.network {
				t.Errorf("NetworkError = %v, want %v", got, tt.network)
			}
			if resp == nil || resp.StatusCode != tt.wantStatus {
				t.Fatalf("response = %+v, want status %d", resp, tt.wantStatus)
			}
		})
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := NewClient(testConfig(), ts.Client())
	resp, err := c.Do(context.Background(), testServer("a", ts.URL), Request{URL: ts.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", resp.Body, calls.Load())
	}
}

func TestClientRateLimitExhausted(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.MaxRetries = 1
	c := NewClient(cfg, ts.Client())

	_, err := c.Do(context.Background(), testServer("a", ts.URL), Request{URL: ts.URL})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestClientBreakerOpensPerServer(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fine"))
	}))
	defer good.Close()

	c := NewClient(testConfig(), nil)
	badServer := testServer("bad-breaker", bad.URL)
	goodServer := testServer("good-breaker", good.URL)

	for i := 0; i < 3; i++ {
		_, _ = c.Do(context.Background(), badServer, Request{URL: bad.URL})
	}
	if got := c.BreakerState("bad-breaker"); got != "open" {
		t.Fatalf("bad breaker = %s, want open", got)
	}

	_, err := c.Do(context.Background(), badServer, Request{URL: bad.URL})
	if err == nil {
		t.Fatal("open breaker should reject")
	}

	if _, err := c.Do(context.Background(), goodServer, Request{URL: good.URL}); err != nil {
		t.Errorf("other server affected by open breaker: %v", err)
	}
	if got := c.BreakerState("good-breaker"); got != "closed" {
		t.Errorf("good breaker = %s", got)
	}
}

func TestClientNotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c := NewClient(testConfig(), ts.Client())
	server := testServer("nf-breaker", ts.URL)
	for i := 0; i < 5; i++ {
		_, _ = c.Do(context.Background(), server, Request{URL: ts.URL})
	}
	if got := c.BreakerState("nf-breaker"); got != "closed" {
		t.Errorf("breaker = %s, want closed", got)
	}
}

func TestClientGetJSON(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte("{not json"))
			return
		}
		_, _ = w.Write([]byte(`{"title":"Heat","year":1995}`))
	}))
	defer ts.Close()

	c := NewClient(testConfig(), ts.Client())
	server := testServer("a", ts.URL)

	var doc map[string]any
	if err := c.GetJSON(context.Background(), server, "metadata", ts.URL+"/good", &doc); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if doc["title"] != "Heat" {
		t.Errorf("doc = %v", doc)
	}

	err := c.GetJSON(context.Background(), server, "metadata", ts.URL+"/bad", &doc)
	var verr *syncerr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestServerTimeout(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	c := NewClient(testConfig(), ts.Client())
	server := testServer("slow", ts.URL)
	server.Timeout = 20 * time.Millisecond

	if _, err := c.Do(context.Background(), server, Request{URL: ts.URL}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
