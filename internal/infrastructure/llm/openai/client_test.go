package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/llm"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/resilience"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completion(content string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}, "finish_reason": "stop"}},
	})
	return payload
}

func TestExtractSendsJSONSchemaResponseFormat(t *testing.T) {
	var payload map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write(completion(`{"equipment":{"name":"SMA Sunny Boy 5.0","category":"Inverter"},"confidence":0.88,"reasoning":"model line"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Model: "gpt-4o-mini"}, nil, quietLogger())
	got, err := client.Extract(context.Background(), "datasheet prompt", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	format, _ := payload["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("unexpected response_format: %+v", payload["response_format"])
	}
	js, _ := format["json_schema"].(map[string]any)
	if js["name"] != "equipment_extraction" || js["schema"] == nil {
		t.Fatalf("schema missing from request: %+v", js)
	}
	if got.Confidence != 0.88 || got.Reasoning != "model line" || !strings.Contains(string(got.Candidate), "Sunny Boy") {
		t.Fatalf("unexpected extraction: %+v", got)
	}
}

func TestExtractStatusErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, quietLogger())
	_, err := client.Extract(context.Background(), "prompt", map[string]any{})

	var statusErr *llm.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("429 must be tagged temporary")
	}
}

func TestExtractNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, quietLogger())
	_, err := client.Extract(context.Background(), "prompt", map[string]any{})
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestExtractMakesSingleCallThroughBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}, quietLogger())
	client := NewClient(Config{BaseURL: server.URL}, exec, quietLogger())

	if _, err := client.Extract(context.Background(), "prompt", map[string]any{}); err == nil {
		t.Fatalf("expected first call to fail")
	}
	_, err := client.Extract(context.Background(), "prompt", map[string]any{})
	if !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls.Load())
	}
}
