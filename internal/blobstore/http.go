package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// HTTPConfig captures settings for the object gateway client.
type HTTPConfig struct {
	// Token, when set, is sent as a bearer token on every request.
	Token          string
	TimeoutSeconds int
}

// HTTP talks to an object gateway that maps HEAD/GET/PUT onto blobs.
type HTTP struct {
	token      string
	httpClient *http.Client
}

// HTTPOption customizes the HTTP store.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.httpClient = client
		}
	}
}

// NewHTTP constructs an object gateway client.
func NewHTTP(cfg HTTPConfig, opts ...HTTPOption) *HTTP {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	h := &HTTP{
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type statusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (h *HTTP) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := h.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, &statusError{Method: http.MethodHead, URL: url, StatusCode: resp.StatusCode}
	}
}

func (h *HTTP) Read(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("get %s: %w", url, ErrNotFound)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("get %s: read body: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

func (h *HTTP) Write(ctx context.Context, url string, data []byte) error {
	resp, err := h.do(ctx, http.MethodPut, url, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Method: http.MethodPut, URL: url, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *HTTP) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: new request: %w", strings.ToLower(method), url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-ndjson")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), url, err)
	}
	return resp, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
