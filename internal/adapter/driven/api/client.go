// Package api implements the verification, token and feed ports against the
// remote social-feed HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// ErrUnexpectedStatus is wrapped into errors for responses the client has no
// mapping for.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Compile-time interface satisfaction checks.
var (
	_ driven.TokenVerifier = (*Client)(nil)
	_ driven.TokenIssuer   = (*Client)(nil)
	_ driven.FeedClient    = (*Client)(nil)
)

const (
	verifyPath  = "/verify-token/"
	tokenPath   = "/token/"
	postsPath   = "/posts/"
	storiesPath = "/stories/"

	// maxBodyBytes bounds how much of any response body is read.
	maxBodyBytes = 4 << 20
)

// Client talks to the remote API. Verification and token requests go through
// a plain transport so every call reaches the server; feed reads go through an
// in-memory HTTP cache and are retried on transient failures.
type Client struct {
	baseURL    *url.URL
	direct     *http.Client
	cached     *http.Client
	retryLimit time.Duration
	logger     *slog.Logger
}

// NewClient creates a Client for the API rooted at baseURL with the following
// transport stack for feed reads:
//  1. httpcache (ETag / Cache-Control aware response caching)
//  2. http.DefaultTransport
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, baseURL, logger)
}

// NewClientWithHTTPClient creates a Client that sends requests through
// httpClient. Tests use it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parsing base URL: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = httpClient.Transport

	return &Client{
		baseURL: u,
		direct:  httpClient,
		cached: &http.Client{
			Transport: cacheTransport,
			Timeout:   httpClient.Timeout,
		},
		retryLimit: 5 * time.Second,
		logger:     logger,
	}, nil
}

// Verify asks the verification endpoint whether credential is currently valid.
// 401 and 403 wrap driven.ErrCredentialRejected; any other non-2xx status
// wraps ErrUnexpectedStatus.
func (c *Client) Verify(ctx context.Context, credential string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(verifyPath), nil)
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.direct.Do(req)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("verify token: %w (status %d)", driven.ErrCredentialRejected, resp.StatusCode)
	default:
		return fmt.Errorf("verify token: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// endpoint resolves an API path against the base URL.
func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	return u.String()
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}
