// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package fetch is the outbound HTTP layer to source servers.
//
// Every server gets its own token-bucket rate limiter and circuit breaker so
// one slow or failing server cannot starve requests to the others. The
// snapshot loader, metadata fetcher, placeholder fetcher and availability
// probe all share one Client.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

var (
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrUnexpectedStatus is returned for any other non-2xx, non-304 answer.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrRateLimited is returned when 429 retries are exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Config holds outbound request settings.
type Config struct {
	Timeout        time.Duration `koanf:"timeout"`
	RatePerSecond  float64       `koanf:"rate_per_second" validate:"gte=0"`
	Burst          int           `koanf:"burst" validate:"gte=0"`
	MaxRetries     int           `koanf:"max_retries" validate:"gte=0"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	UserAgent      string        `koanf:"user_agent"`
	Breaker        BreakerConfig `koanf:"breaker"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		RatePerSecond:  20,
		Burst:          10,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		UserAgent:      "catalogd",
		Breaker:        DefaultBreakerConfig(),
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode   int
	Header       http.Header
	Body         []byte
	NotModified  bool
	ETag         string
	LastModified string
}

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	// Kind labels metrics: snapshot, metadata, placeholder, probe.
	Kind string
	// Conditional request validators from a previous response.
	IfNoneMatch     string
	IfModifiedSince string
}

// peer is the per-server resilience state.
type peer struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
}

// Client performs rate-limited, breaker-protected requests to source servers.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	peers map[string]*peer
}

// NewClient creates a Client. A nil httpClient uses one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker = def.Breaker
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		peers:      make(map[string]*peer),
	}
}

func (c *Client) peer(serverID string) *peer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.peers[serverID]; ok {
		return p
	}
	limit := rate.Inf
	if c.cfg.RatePerSecond > 0 {
		limit = rate.Limit(c.cfg.RatePerSecond)
	}
	burst := c.cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	p := &peer{
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker("fetch-"+serverID, c.cfg.Breaker),
	}
	c.peers[serverID] = p
	return p
}

// BreakerState reports the breaker state for a server: closed, half-open or open.
func (c *Client) BreakerState(serverID string) string {
	return stateToString(c.peer(serverID).breaker.State())
}

// Do performs req against server. A 404 returns the response together with
// ErrNotFound. Transport failures and unexpected statuses are returned as
// *syncerr.NetworkError.
func (c *Client) Do(ctx context.Context, server models.ServerConfig, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	p := c.peer(server.ID)
	start := time.Now()

	if err := p.limiter.Wait(ctx); err != nil {
		err = syncerr.NewNetworkError(server.ID, logging.SanitizeURL(req.URL), 0, err)
		metrics.RecordFetch(server.ID, req.Kind, time.Since(start), err)
		return nil, err
	}

	if server.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, server.Timeout)
		defer cancel()
	}

	resp, err := execute(p.breaker, func() (*Response, error) {
		return c.doWithRetry(ctx, req)
	})
	metrics.RecordFetch(server.ID, req.Kind, time.Since(start), ignoreNotFound(err))

	if err != nil && !errors.Is(err, ErrNotFound) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return resp, syncerr.NewNetworkError(server.ID, logging.SanitizeURL(req.URL), status, err)
	}
	return resp, err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// doWithRetry executes the request, retrying 429 answers with exponential
// backoff or the server's Retry-After.
func (c *Client) doWithRetry(ctx context.Context, req Request) (*Response, error) {
	for attempt := 0; ; attempt++ {
		resp, retryAfter, err := c.once(ctx, req)
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return resp, err
		}
		if attempt >= c.cfg.MaxRetries {
			return resp, fmt.Errorf("%w after %d retries", ErrRateLimited, attempt)
		}

		delay := c.cfg.RetryBaseDelay * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		logging.Warn().Str("url", logging.SanitizeURL(req.URL)).Dur("retry_delay", delay).
			Int("attempt", attempt+1).Msg("Source server rate limited (HTTP 429), retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) once(ctx context.Context, req Request) (*Response, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if req.IfNoneMatch != "" {
		httpReq.Header.Set("If-None-Match", req.IfNoneMatch)
	}
	if req.IfModifiedSince != "" {
		httpReq.Header.Set("If-Modified-Since", req.IfModifiedSince)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	resp := &Response{
		StatusCode:   httpResp.StatusCode,
		Header:       httpResp.Header,
		ETag:         httpResp.Header.Get("ETag"),
		LastModified: httpResp.Header.Get("Last-Modified"),
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return resp, parseRetryAfter(httpResp.Header.Get("Retry-After")), ErrRateLimited
	case httpResp.StatusCode == http.StatusNotModified:
		resp.NotModified = true
		return resp, 0, nil
	case httpResp.StatusCode == http.StatusNotFound:
		return resp, 0, ErrNotFound
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return resp, 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, httpResp.StatusCode)
	}

	if req.Method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		if err != nil {
			return resp, 0, fmt.Errorf("read body: %w", err)
		}
		resp.Body = body
	}
	return resp, 0, nil
}

// parseRetryAfter reads the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// GetJSON fetches url and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, server models.ServerConfig, kind, url string, v any) error {
	resp, err := c.Do(ctx, server, Request{URL: url, Kind: kind})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return syncerr.NewValidationError(url, "decode "+kind, err)
	}
	return nil
}
