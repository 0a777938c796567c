// Package remote fetches telemetry CSV exports over HTTP.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"lapfinder/internal/config"
	"lapfinder/internal/monitoring"
	"lapfinder/internal/telemetry"
)

// DefaultMaxBytes caps the size of a downloaded telemetry export
const DefaultMaxBytes = 64 << 20

// ErrTooLarge is returned when an export exceeds the client's size cap
var ErrTooLarge = errors.New("telemetry export exceeds size limit")

var logf = monitoring.Prefixed("remote")

// Client downloads telemetry exports
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	maxBytes    int64
}

// NewClient creates a client from the remote config section. When OAuth2
// credentials are configured every request carries a bearer token.
// A zero max_bytes keeps DefaultMaxBytes.
func NewClient(cfg config.RemoteConfig) *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	if ts := NewTokenSource(context.Background(), cfg); ts != nil {
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 60 * time.Second
	}
	c := NewClientWithHTTP(httpClient, cfg.RequestsPerMinute)
	if cfg.MaxBytes > 0 {
		c.SetMaxBytes(cfg.MaxBytes)
	}
	return c
}

// NewClientWithHTTP creates a client around an existing http.Client
func NewClientWithHTTP(httpClient *http.Client, requestsPerMinute int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(requestsPerMinute),
		maxBytes:    DefaultMaxBytes,
	}
}

// SetMaxBytes changes the download size cap
func (c *Client) SetMaxBytes(n int64) {
	c.maxBytes = n
}

// IsURL reports whether source looks like an http(s) URL rather than a path
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// FetchTelemetry downloads and parses the CSV export at rawURL
func (c *Client) FetchTelemetry(ctx context.Context, rawURL string) (telemetry.Table, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return telemetry.Table{}, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return telemetry.Table{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return telemetry.Table{}, err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return telemetry.Table{}, fmt.Errorf("remote error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Read one byte past the cap to detect oversized exports
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return telemetry.Table{}, ErrTooLarge
	}

	table, err := telemetry.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return telemetry.Table{}, err
	}
	if left := c.RateLimitStatus(); left >= 0 {
		logf("fetched %s: %d rows, %d requests left", u.Redacted(), table.Len(), left)
	} else {
		logf("fetched %s: %d rows", u.Redacted(), table.Len())
	}
	return table, nil
}

// RateLimitStatus returns the requests remaining in the current window
func (c *Client) RateLimitStatus() int {
	return c.rateLimiter.Status()
}
