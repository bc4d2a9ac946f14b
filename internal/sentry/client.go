// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package sentry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds each API request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "export-sentry-issue"

var baseURLPattern = regexp.MustCompile(`^https?://[^/]+/api/\d+`)

// ParseBaseURL extracts the API base (scheme, host, /api/<version>) from any
// Sentry URL that starts with one. Anything after the version is dropped.
func ParseBaseURL(raw string) (string, error) {
	m := baseURLPattern.FindString(strings.TrimSpace(raw))
	if m == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return m, nil
}

// Client talks to the Sentry REST API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A timeout set with
// WithTimeout applies to a copy of hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing and fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the API rooted at baseAPIURL, typically the
// output of ParseBaseURL.
func NewClient(baseAPIURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseAPIURL, "/"),
		token:     token,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the API base the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchIssue returns the issue with the given numeric ID.
func (c *Client) FetchIssue(ctx context.Context, id string) (*Issue, error) {
	var issue Issue
	if err := c.getJSON(ctx, c.issueURL(id, ""), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// FetchLatestEvent returns the most recent event of an issue.
func (c *Client) FetchLatestEvent(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := c.getJSON(ctx, c.issueURL(id, "events/latest/"), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// FetchEvents returns the first page of an issue's events, newest first.
func (c *Client) FetchEvents(ctx context.Context, id string) ([]*Event, error) {
	var events []*Event
	if err := c.getJSON(ctx, c.issueURL(id, "events/"), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListTokens returns the API tokens of the authenticated user. The endpoint
// is always served under /api/0/ regardless of the configured version.
func (c *Client) ListTokens(ctx context.Context) ([]APIToken, error) {
	var tokens []APIToken
	if err := c.getJSON(ctx, c.rootURL()+"/api/0/api-tokens/", &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// RevokeToken never succeeds: Sentry offers no endpoint that lets a token
// revoke itself. It checks the token still lists and then returns an error
// wrapping ErrManualActionRequired, joined with the listing error if any.
func (c *Client) RevokeToken(ctx context.Context) error {
	tokens, err := c.ListTokens(ctx)
	if err != nil {
		return errors.Join(ErrManualActionRequired, fmt.Errorf("list tokens: %w", err))
	}
	c.logger.Debug("token listing succeeded", "count", len(tokens))
	return ErrManualActionRequired
}

// Verify performs a trial GET on rawURL with the client's credentials.
// A nil return means the token was accepted.
func (c *Client) Verify(ctx context.Context, rawURL string) error {
	_, err := c.get(ctx, rawURL)
	return err
}

func (c *Client) issueURL(id, suffix string) string {
	return c.baseURL + "/issues/" + url.PathEscape(id) + "/" + suffix
}

// rootURL is the base URL with its /api/<version> suffix removed.
func (c *Client) rootURL() string {
	if i := strings.LastIndex(c.baseURL, "/api/"); i >= 0 {
		return c.baseURL[:i]
	}
	return c.baseURL
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	c.logger.Debug("sentry request", "url", u, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: u, Body: string(body)}
	}
	return body, nil
}
