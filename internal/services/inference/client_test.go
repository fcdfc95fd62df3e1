package inference_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docbatch/internal/flatten"
	"docbatch/internal/services/inference"
)

type request struct {
	Units []struct {
		Doc        string          `json:"doc"`
		Page       int             `json:"page"`
		Region     string          `json:"region"`
		Payload    json.RawMessage `json:"payload"`
		PayloadB64 []byte          `json:"payload_b64"`
	} `json:"units"`
}

func newService(t *testing.T, seen *request) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/infer":
			var req request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			*seen = req
			type result struct {
				Doc    string `json:"doc"`
				Page   int    `json:"page"`
				Region string `json:"region"`
				Value  string `json:"value"`
			}
			var results []result
			for _, u := range req.Units {
				results = append(results, result{Doc: u.Doc, Page: u.Page, Region: u.Region, Value: "v:" + u.Region})
			}
			results = append(results, result{Doc: "stray", Region: "x", Value: "ignored"})
			_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientInferPreparedAndRawUnits(t *testing.T) {
	var seen request
	server := newService(t, &seen)
	client := inference.NewClient(inference.Config{Endpoint: server.URL + "/"}, inference.WithHTTPClient(server.Client()))

	a := flatten.Unit{Location: flatten.Location{DocID: "d", PageID: 1, RegionID: "r1"}, Payload: []byte(`{"category_id":13}`)}
	b := flatten.Unit{Location: flatten.Location{DocID: "d", PageID: 2, RegionID: "r2"}, Payload: []byte{0x89, 'P', 'N', 'G'}}
	prepared, err := client.Prepare(context.Background(), a)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !prepared.Prepared {
		t.Fatal("expected unit to be marked prepared")
	}

	out, err := client.Infer(context.Background(), []flatten.Unit{prepared, b})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(out) != 2 || out[a.Location] != "v:r1" || out[b.Location] != "v:r2" {
		t.Fatalf("unexpected results %v", out)
	}
	if len(seen.Units) != 2 || string(seen.Units[0].Payload) != `{"category_id":13}` {
		t.Fatalf("unexpected request %+v", seen)
	}
	if string(seen.Units[1].PayloadB64) != "\x89PNG" {
		t.Fatalf("expected binary payload as base64, got %q", seen.Units[1].PayloadB64)
	}
}

func TestClientHealthCheck(t *testing.T) {
	var seen request
	server := newService(t, &seen)
	client := inference.NewClient(inference.Config{Endpoint: server.URL}, inference.WithHTTPClient(server.Client()))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client := inference.NewClient(inference.Config{Endpoint: server.URL}, inference.WithHTTPClient(server.Client()))

	err := client.HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "http 503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
	_, err = client.Infer(context.Background(), []flatten.Unit{{Payload: []byte(`{}`)}})
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestClientRequiresEndpoint(t *testing.T) {
	if err := inference.NewClient(inference.Config{}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
