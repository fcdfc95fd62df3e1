package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docbatch/internal/flatten"
)

const maxErrorBody = 2048

// Config captures the runtime settings required to reach the recognition service.
type Config struct {
	Endpoint       string
	TimeoutSeconds int
}

// Client talks to the recognition service.
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

// NewClient constructs a recognition client. A zero timeout leaves requests
// bounded only by their context.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
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
	return fmt.Sprintf("inference %s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

type wireUnit struct {
	Doc    string `json:"doc"`
	Page   int    `json:"page"`
	Region string `json:"region"`
	// Payload carries JSON payloads verbatim; anything else is base64 encoded.
	Payload    json.RawMessage `json:"payload,omitempty"`
	PayloadB64 []byte          `json:"payload_b64,omitempty"`
}

type wireResult struct {
	Doc    string `json:"doc"`
	Page   int    `json:"page"`
	Region string `json:"region"`
	Value  string `json:"value"`
}

type inferResponse struct {
	Results []wireResult `json:"results"`
	Error   string       `json:"error"`
}

// Prepare encodes unit to its wire form.
func (c *Client) Prepare(_ context.Context, unit flatten.Unit) (flatten.Unit, error) {
	if unit.Prepared {
		return unit, nil
	}
	encoded, err := encodeUnit(unit)
	if err != nil {
		return unit, err
	}
	unit.Payload = encoded
	unit.Prepared = true
	return unit, nil
}

func encodeUnit(unit flatten.Unit) ([]byte, error) {
	w := wireUnit{Doc: unit.Location.DocID, Page: unit.Location.PageID, Region: unit.Location.RegionID}
	if json.Valid(unit.Payload) {
		w.Payload = unit.Payload
	} else {
		w.PayloadB64 = unit.Payload
	}
	encoded, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode unit %s: %w", unit.Location, err)
	}
	return encoded, nil
}

// Infer recognizes one batch. Results naming locations outside the batch are
// ignored.
func (c *Client) Infer(ctx context.Context, units []flatten.Unit) (map[flatten.Location]string, error) {
	if len(units) == 0 {
		return map[flatten.Location]string{}, nil
	}
	var body bytes.Buffer
	body.WriteString(`{"units":[`)
	want := make(map[flatten.Location]struct{}, len(units))
	for i, unit := range units {
		if i > 0 {
			body.WriteByte(',')
		}
		encoded := unit.Payload
		if !unit.Prepared {
			var err error
			if encoded, err = encodeUnit(unit); err != nil {
				return nil, err
			}
		}
		body.Write(encoded)
		want[unit.Location] = struct{}{}
	}
	body.WriteString(`]}`)

	data, err := c.do(ctx, http.MethodPost, "/infer", &body, "infer")
	if err != nil {
		return nil, err
	}
	var parsed inferResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("inference infer: parse response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("inference infer: %s", parsed.Error)
	}
	out := make(map[flatten.Location]string, len(parsed.Results))
	for _, r := range parsed.Results {
		loc := flatten.Location{DocID: r.Doc, PageID: r.Page, RegionID: r.Region}
		if _, ok := want[loc]; !ok {
			continue
		}
		out[loc] = r.Value
	}
	return out, nil
}

// HealthCheck verifies the service is up and has its model loaded.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, "health")
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, op string) ([]byte, error) {
	if c.endpoint == "" {
		return nil, errors.New("inference endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("inference %s: new request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference %s: http error: %w", op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("inference %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &httpStatusError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
