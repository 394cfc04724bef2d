package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dealhunter/dealhunter/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestSearchRequest_AuthAndBody(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /search": `{"success":true,"data":{"logId":"log-1234567890","tasks":[]}}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/search", map[string]any{
		"query":   "beach week in Portugal",
		"user_id": "alice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		LogID string `json:"logId"`
	}
	if err := decodeData(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.LogID != "log-1234567890" {
		t.Errorf("logId = %q", result.LogID)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["query"] != "beach week in Portugal" {
		t.Errorf("body.query = %v", body["query"])
	}
	if body["user_id"] != "alice" {
		t.Errorf("body.user_id = %v", body["user_id"])
	}
}

func TestDecodeData_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	client := ts.client()
	resp, err := client.get(ctx, "/searches/missing")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var v any
	err = decodeData(resp, &v)
	if err == nil {
		t.Fatal("expected error from failure envelope")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want server message", err.Error())
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want status code", err.Error())
	}
}

func TestDecodeData_TaggedErrorSurvivesEnvelope(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /search": `{"success":false,"error":"HALLUCINATION: model response is not valid JSON"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/search", map[string]any{"query": "x", "user_id": "u"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = decodeData(resp, nil)
	if err == nil || !strings.Contains(err.Error(), "HALLUCINATION") {
		t.Errorf("error = %v, want HALLUCINATION tag to surface", err)
	}
}

func TestServerNotReachable(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Expiry.Schedule = "@hourly"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
		if k.Key == "llm.api_key" {
			t.Error("secret llm.api_key listed by ShowAll")
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}
