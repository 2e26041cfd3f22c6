package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetcher is the subset of the remote API the sync controller drives.
// *Client implements it; tests may substitute their own.
type Fetcher interface {
	BaseURL() string
	FetchStatus(ctx context.Context) (*StatusResponse, error)
	FetchStats(ctx context.Context) (*ServerStats, error)
	FetchRoutes(ctx context.Context) ([]Route, error)
	FetchConfig(ctx context.Context) (*ServerConfig, error)
	FetchLogs(ctx context.Context, limit int) ([]RequestLogEntry, error)
	SetRunning(ctx context.Context, running bool) error
	AddRoute(ctx context.Context, route NewRoute) error
	ClearLogs(ctx context.Context) error
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client talks to the monitored server's REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	// DefaultServerURL is used when no server URL is given.
	DefaultServerURL = "http://localhost:8080"
	defaultUserAgent = "beacon/0.1"
	apiPrefix        = "/api"
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests unbounded apart from
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// NewClient builds a Client for the given server URL.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := ParseServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// FetchStatus retrieves the server run status.
func (c *Client) FetchStatus(ctx context.Context) (*StatusResponse, error) {
	var payload StatusResponse
	if err := c.Do(ctx, http.MethodGet, "/server/status", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchStats retrieves the current statistics snapshot.
func (c *Client) FetchStats(ctx context.Context) (*ServerStats, error) {
	var payload ServerStats
	if err := c.Do(ctx, http.MethodGet, "/server/stats", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchRoutes retrieves the route table.
func (c *Client) FetchRoutes(ctx context.Context) ([]Route, error) {
	var payload RoutesResponse
	if err := c.Do(ctx, http.MethodGet, "/routes", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Routes, nil
}

// FetchConfig retrieves the server configuration snapshot.
func (c *Client) FetchConfig(ctx context.Context) (*ServerConfig, error) {
	var payload ServerConfig
	if err := c.Do(ctx, http.MethodGet, "/server/config", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchLogs retrieves the most recent request log entries, newest first.
func (c *Client) FetchLogs(ctx context.Context, limit int) ([]RequestLogEntry, error) {
	endpoint := "/logs"
	if limit > 0 {
		endpoint += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var payload LogsResponse
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Logs, nil
}

// StartServer asks the server to start serving.
func (c *Client) StartServer(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/server/start", nil, &MessageResponse{})
}

// StopServer asks the server to stop serving.
func (c *Client) StopServer(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/server/stop", nil, &MessageResponse{})
}

// SetRunning starts or stops the server.
func (c *Client) SetRunning(ctx context.Context, running bool) error {
	if running {
		return c.StartServer(ctx)
	}
	return c.StopServer(ctx)
}

// AddRoute registers a new route on the server.
func (c *Client) AddRoute(ctx context.Context, route NewRoute) error {
	return c.Do(ctx, http.MethodPost, "/routes", route, &MessageResponse{})
}

// ClearLogs empties the server-side request log.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/logs", nil, &MessageResponse{})
}

// Do issues a request against <server>/api<endpoint>. A non-nil body is sent
// as JSON; a non-nil dest receives the decoded JSON response.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + apiPrefix + rel.Path
	reqURL.RawQuery = rel.RawQuery

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:     resp.StatusCode,
			Status:   statusText(resp),
			Endpoint: endpoint,
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// ParseServerURL normalizes a user-supplied server URL to scheme://host[/prefix].
// Query and fragment are dropped, as is any trailing slash on the path.
func ParseServerURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("parse server url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
