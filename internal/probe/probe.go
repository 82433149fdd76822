// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package probe checks whether asset URLs are still served. The orphan
// detector uses it to treat catalog entries whose every video URL is dead as
// unbacked even when a snapshot still lists them.
package probe

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

// DefaultConcurrency bounds in-flight HEAD requests.
const DefaultConcurrency = 8

// Prober answers reachability questions for a set of URLs. A URL missing
// from the result has no definitive answer and must be treated as possibly
// reachable.
type Prober interface {
	Reachable(ctx context.Context, urls []string) (map[string]bool, error)
}

// HTTPProber issues HEAD requests through the shared fetch client so probes
// share each server's rate limiter and circuit breaker.
type HTTPProber struct {
	client      *fetch.Client
	servers     []models.ServerConfig
	cache       cache.Cacher
	concurrency int
}

// NewHTTPProber creates a prober. servers attributes each URL to the server
// whose base URL prefixes it; c may be nil to disable result caching.
func NewHTTPProber(client *fetch.Client, servers []models.ServerConfig, c cache.Cacher, concurrency int) *HTTPProber {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &HTTPProber{client: client, servers: servers, cache: c, concurrency: concurrency}
}

// Reachable probes every URL. A URL is reachable when its HEAD answers 2xx or
// 304, and unreachable when it answers 404 or 410 or the connection is
// refused. Any other failure (open breaker, exhausted rate-limit retries,
// timeouts, 5xx) leaves the URL out of the result and out of the cache. The
// returned error is only non-nil when ctx is done before probing finished.
func (p *HTTPProber) Reachable(ctx context.Context, urls []string) (map[string]bool, error) {
	out := make(map[string]bool, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		if p.cache != nil {
			if v, ok := p.cache.Get(cacheKey(u)); ok {
				if reachable, ok := v.(bool); ok {
					out[u] = reachable
					continue
				}
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return out, ctx.Err()
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()

			reachable, known := p.head(ctx, u)
			if !known {
				return
			}
			if p.cache != nil {
				p.cache.Set(cacheKey(u), reachable)
			}
			mu.Lock()
			out[u] = reachable
			mu.Unlock()
		}(u)
	}
	wg.Wait()
	return out, ctx.Err()
}

// head reports whether u is reachable and whether that answer is definitive.
func (p *HTTPProber) head(ctx context.Context, u string) (reachable, known bool) {
	server := p.serverFor(u)
	_, err := p.client.Do(ctx, server, fetch.Request{Method: http.MethodHead, URL: u, Kind: "probe"})
	if err == nil {
		return true, true
	}
	if definitelyGone(err) {
		logging.Ctx(ctx).Debug().Str("url", logging.SanitizeURL(u)).Err(err).Msg("Probe target gone")
		return false, true
	}
	logging.Ctx(ctx).Warn().Str("url", logging.SanitizeURL(u)).Err(err).Msg("Probe inconclusive")
	return false, false
}

func definitelyGone(err error) bool {
	if errors.Is(err, fetch.ErrNotFound) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var nerr *syncerr.NetworkError
	return errors.As(err, &nerr) && nerr.Status == http.StatusGone
}

// serverFor picks the configured server hosting u, falling back to a
// host-scoped pseudo server so unknown hosts get their own breaker.
func (p *HTTPProber) serverFor(u string) models.ServerConfig {
	best := -1
	for i, s := range p.servers {
		base := strings.TrimRight(s.BaseURL, "/")
		if base == "" || !strings.HasPrefix(u, base) {
			continue
		}
		if best < 0 || len(base) > len(strings.TrimRight(p.servers[best].BaseURL, "/")) {
			best = i
		}
	}
	if best >= 0 {
		return p.servers[best]
	}
	host := u
	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return models.ServerConfig{ID: "probe:" + host, Enabled: true}
}

// Invalidate drops cached probe results for URLs matching pattern.
func (p *HTTPProber) Invalidate(pattern string) int {
	if p.cache == nil {
		return 0
	}
	return p.cache.DeleteMatching(cacheKey(pattern))
}

func cacheKey(u string) string {
	return "probe:" + u
}

// Static is a Prober backed by a fixed answer set. URLs absent from the set
// are reported unreachable.
type Static map[string]bool

// Reachable implements Prober.
func (s Static) Reachable(_ context.Context, urls []string) (map[string]bool, error) {
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		out[u] = s[u]
	}
	return out, nil
}

var (
	_ Prober = (*HTTPProber)(nil)
	_ Prober = Static(nil)
)
