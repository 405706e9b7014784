// Package client talks to the theory backend. Callers pass a Session
// explicitly; the package keeps no shared state.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/theoria/internal/apperr"
	"github.com/starford/theoria/internal/theory"
)

// DefaultTimeout applies when no WithTimeout or WithHTTPClient option is given.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Session carries the backend endpoint and the optional bearer token.
type Session struct {
	BaseURL string
	Token   string
}

// Client issues typed requests against the theory endpoints.
type Client struct {
	session Session
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. The rest of the underlying
// http.Client, including one passed via WithHTTPClient, is kept.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// New returns a client bound to s.
func New(s Session, opts ...Option) *Client {
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	c := &Client{
		session: s,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Structure fetches GET /theory/structure. The decoded tree is validated
// before it is returned.
func (c *Client) Structure(ctx context.Context) (*theory.Structure, error) {
	var s theory.Structure
	if err := c.get(ctx, "/theory/structure", &s); err != nil {
		return nil, fmt.Errorf("client: structure: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("client: structure: %w: %w", apperr.ErrMalformed, err)
	}
	return &s, nil
}

// Content fetches GET /theory/content/{path}. Each path segment is escaped.
func (c *Client) Content(ctx context.Context, path string) (theory.Rendered, error) {
	var r theory.Rendered
	if err := c.get(ctx, "/theory/content/"+escapePath(path), &r); err != nil {
		return theory.Rendered{}, fmt.Errorf("client: content %q: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return theory.Rendered{}, fmt.Errorf("client: content %q: %w: %w", path, apperr.ErrMalformed, err)
	}
	return r, nil
}

func (c *Client) get(ctx context.Context, route string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.session.BaseURL+route, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", apperr.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", apperr.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP 404", apperr.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w: HTTP 401", apperr.ErrNetwork, apperr.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: HTTP %d", apperr.ErrNetwork, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return fmt.Errorf("%w: invalid JSON at offset %d", apperr.ErrMalformed, syn.Offset)
		}
		return fmt.Errorf("%w: %w", apperr.ErrMalformed, err)
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
