// Package api is the client for the curation REST backend: image listing
// with the filter container's query parameters, item detail and content,
// permatags, ratings, lists, keyword categories and the activity audit log.
//
// Requests carry a bearer token from the auth provider and the tenant in
// the X-Tenant-ID header. Failures surface as *APIError with the HTTP
// status and the backend's message; nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultTimeout is the HTTP client timeout for JSON calls. Full-resolution
	// downloads rely on the caller's context instead.
	defaultTimeout = 30 * time.Second

	// apiPrefix is prepended to every endpoint path.
	apiPrefix = "/api/v1"

	// TenantHeader carries the tenant id on every request.
	TenantHeader = "X-Tenant-ID"

	// maxFullImageBytes caps full-resolution downloads.
	maxFullImageBytes = 200 << 20
)

// TokenSource supplies the bearer token for a request. The auth provider
// implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tenant     string
	tokens     TokenSource
}

// NewClient creates a client for baseURL. tokens may be nil for
// unauthenticated local backends.
func NewClient(baseURL, tenant string, tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tenant:     tenant,
		tokens:     tokens,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Tenant returns the default tenant.
func (c *Client) Tenant() string { return c.tenant }

// --- Internal helpers ---

// request builds and sends a request. body, when non-nil, is JSON encoded.
func (c *Client) request(ctx context.Context, tenant, method, path string, query url.Values, body any) (*http.Response, error) {
	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	log.Debug().Str("method", method).Str("path", path).Msg("API request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", time.Since(start)).Err(err).Msg("API response")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	log.Debug().Int("statusCode", resp.StatusCode).Dur("duration", time.Since(start)).Msg("API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: errorMessage(raw)}
		log.Warn().Int("statusCode", resp.StatusCode).Str("path", path).Str("errorMessage", apiErr.Message).Msg("API error")
		return nil, apiErr
	}
	return resp, nil
}

// do sends a request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.request(ctx, c.tenant, method, path, query, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(raw), 200))
	}
	return nil
}

// errorMessage extracts the message from the backend's error body, which is
// {"detail": "..."} or {"error": "..."}; anything else is returned trimmed.
func errorMessage(raw []byte) string {
	var body struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return truncate(strings.TrimSpace(string(raw)), 200)
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
