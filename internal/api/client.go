package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client wraps HTTP access to the console backend API. It attaches the
// current bearer credential to every request and notifies the registered
// handler when the backend rejects that credential with a 401.
type Client struct {
	baseURL            *url.URL
	httpClient         *http.Client
	userAgent          string
	insecureSkipVerify bool

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// Option mutates client configuration.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP timeout on the underlying client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent configures a custom user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithInsecureSkipVerify toggles TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		c.insecureSkipVerify = skip
	}
}

// NewClient constructs a new API client.
func NewClient(base string, opts ...Option) *Client {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + strings.TrimLeft(base, "/")
	}
	base = strings.TrimSuffix(base, "/")

	parsed, err := url.Parse(base)
	if err != nil {
		panic(fmt.Sprintf("invalid api base url: %s", err))
	}

	normalizedPath := strings.TrimSpace(parsed.Path)
	normalizedPath = strings.TrimSuffix(normalizedPath, "/")
	switch normalizedPath {
	case "", "/", "/api":
		parsed.Path = "/api/v1"
	case "/v1":
		parsed.Path = "/api/v1"
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		userAgent:  "console-cli",
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.insecureSkipVerify {
		client.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// SetToken configures the bearer credential for subsequent requests. An
// empty token sends requests unauthenticated.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the currently configured bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers the handler invoked when a request comes back
// with 401. The handler runs before the error is returned to the caller,
// once per 401 response.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// Do issues an HTTP request against the API and decodes the response into v
// when provided.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload interface{}, v interface{}) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("api request: %s %s", method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.Debugf("api request failed: %v", err)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled or timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("perform request: %w", err)
	}

	logrus.Debugf("api response: %s %s -> %s", method, req.URL.Path, resp.Status)

	defer func() {
		if resp.Body != nil {
			if v == nil {
				io.Copy(io.Discard, resp.Body)
			}
			resp.Body.Close()
		}
	}()

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp)
		if resp.StatusCode == http.StatusUnauthorized {
			c.notifyUnauthorized()
		}
		return resp, apiErr
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp, nil
}

// notifyUnauthorized signals the session layer before the 401 propagates,
// so callers never observe a still-authenticated session after the failure.
func (c *Client) notifyUnauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, payload interface{}) (*http.Request, error) {
	method = strings.ToUpper(method)

	endpoint = strings.TrimSpace(endpoint)
	var rawQuery string
	if idx := strings.Index(endpoint, "?"); idx >= 0 {
		rawQuery = endpoint[idx+1:]
		endpoint = endpoint[:idx]
	}

	joinedPath := path.Join(c.baseURL.Path, strings.TrimLeft(endpoint, "/"))
	target := *c.baseURL
	target.Path = joinedPath
	if rawQuery != "" {
		target.RawQuery = rawQuery
	}

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}
