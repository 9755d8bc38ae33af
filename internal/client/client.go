package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client talks to the conversion API on behalf of one authenticated
// identity. The bearer token is process-wide state: set once at login, read
// by every operation, and cleared on logout or on the first authentication
// failure.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithToken seeds the client with a previously stored bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 180 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Logout clears the stored token.
func (c *Client) Logout() {
	c.setToken("")
}

// do issues a request and maps any non-2xx outcome onto the error taxonomy.
// The caller owns the response body on success.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientNetworkError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	detail := readDetail(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Invalidate the session so the caller is forced through login
		// rather than replaying a dead token.
		c.setToken("")
		return nil, &AuthError{Detail: detail}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &QuotaExceededError{Detail: detail}
	case resp.StatusCode == http.StatusConflict:
		return nil, &NotReadyError{Resource: path, State: detail}
	case resp.StatusCode >= 500:
		return nil, &TransientNetworkError{Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, detail)}
	default:
		return nil, &ValidationError{Reason: detail}
	}
}

// getJSON issues a GET and decodes the response into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransientNetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes the response into v.
func (c *Client) postJSON(ctx context.Context, path string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransientNetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return &TransientNetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func readDetail(r io.Reader) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&body); err != nil || body.Detail == "" {
		return "request failed"
	}
	return body.Detail
}
