package lockserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docbatch/internal/services"
)

// TimestampLayout is the wire format of lock timestamps (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

const (
	defaultRequestTimeout = 10 * time.Second
	pingKey               = ".docbatch-ping"
)

// Config captures the runtime settings required to reach the lock server.
type Config struct {
	Endpoint       string
	TimeoutSeconds int
}

// Client talks to the lock server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a lock server client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultRequestTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type httpStatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("lockserver %s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

// Read returns the stored start time for key.
func (c *Client) Read(ctx context.Context, key string) (time.Time, bool, error) {
	resp, body, err := c.send(ctx, http.MethodGet, c.keyURL("checklocktime", key, false), "")
	if err != nil {
		return time.Time{}, false, c.unavailable("read", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(body), time.UTC)
		if err != nil {
			return time.Time{}, false, c.unavailable("read", fmt.Errorf("parse timestamp %q: %w", body, err))
		}
		return ts, true, nil
	case http.StatusNotFound:
		return time.Time{}, false, nil
	default:
		return time.Time{}, false, c.unavailable("read", &httpStatusError{Op: "read", StatusCode: resp.StatusCode, Body: body})
	}
}

// CreateIfAbsent stores ts when key is absent and reports whether it did.
func (c *Client) CreateIfAbsent(ctx context.Context, key string, ts time.Time) (bool, error) {
	resp, body, err := c.send(ctx, http.MethodPost, c.keyURL("createlocktime", key, true), formatTimestamp(ts))
	if err != nil {
		return false, c.unavailable("create", err)
	}
	switch {
	case resp.StatusCode == http.StatusConflict:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, c.unavailable("create", &httpStatusError{Op: "create", StatusCode: resp.StatusCode, Body: body})
	}
}

// Overwrite stores ts for key unconditionally.
func (c *Client) Overwrite(ctx context.Context, key string, ts time.Time) error {
	resp, body, err := c.send(ctx, http.MethodPost, c.keyURL("createlocktime", key, false), formatTimestamp(ts))
	if err != nil {
		return c.unavailable("overwrite", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.unavailable("overwrite", &httpStatusError{Op: "overwrite", StatusCode: resp.StatusCode, Body: body})
	}
	return nil
}

// Ping verifies the lock server answers lookups. A 404 for the probe key is a
// healthy answer.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.Read(ctx, pingKey)
	return err
}

func (c *Client) keyURL(op, key string, ifAbsent bool) string {
	u := c.endpoint + "/" + op + "/" + url.PathEscape(key)
	if ifAbsent {
		u += "?if_absent=1"
	}
	return u
}

func (c *Client) send(ctx context.Context, method, target, body string) (*http.Response, string, error) {
	if c.endpoint == "" {
		return nil, "", errors.New("lock server endpoint not configured")
	}
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "text/plain")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return resp, string(data), nil
}

func (c *Client) unavailable(op string, err error) error {
	return services.Wrap(services.ErrLeaseUnavailable, "lockserver", op, c.endpoint, err)
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}
