package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

func testOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestExtractSendsSchemaAsFormat(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"equipment\":{\"name\":\"Panel\"},\"confidence\":0.6,\"reasoning\":\"title\"}"}`))
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5", testOptions())
	schema := map[string]any{"type": "object"}
	got, err := client.Extract(context.Background(), "datasheet prompt", schema)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if payload["prompt"] != "datasheet prompt" || payload["model"] != "qwen2.5" || payload["stream"] != false {
		t.Fatalf("unexpected request payload: %+v", payload)
	}
	format, ok := payload["format"].(map[string]any)
	if !ok || format["type"] != "object" {
		t.Fatalf("schema must be sent as format, got %+v", payload["format"])
	}
	if got.Confidence != 0.6 || !strings.Contains(string(got.Candidate), "Panel") {
		t.Fatalf("unexpected extraction: %+v", got)
	}
}

func TestExtractIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5", testOptions())
	_, err := client.Extract(context.Background(), "prompt", map[string]any{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("502 must be tagged temporary, got %v", err)
	}
}

func TestExtractRejectsProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"sorry, no data"}`))
	}))
	defer server.Close()

	client := New(server.URL, "qwen2.5", testOptions())
	if _, err := client.Extract(context.Background(), "prompt", map[string]any{}); err == nil {
		t.Fatalf("expected decode error")
	}
}
