package httpfetch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 body"))
	}))
	defer server.Close()

	doc, err := New(Options{}).Fetch(context.Background(), server.URL+"/sheet.pdf")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(doc.Data) != "%PDF-1.7 body" || doc.ContentType != "application/pdf" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestFetchNon2xxIsFetchFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := New(Options{}).Fetch(context.Background(), server.URL+"/missing.pdf")
	if !domain.IsKind(err, domain.ErrFetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
	if msg := domain.PublicMessage(err); msg != "Failed to fetch document: 404 Not Found" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestFetchTransportErrorIsFetchFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), addr+"/a.pdf")
	if !domain.IsKind(err, domain.ErrFetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer server.Close()

	_, err := New(Options{MaxBytes: 1024}).Fetch(context.Background(), server.URL)
	if !domain.IsKind(err, domain.ErrFetchFailed) {
		t.Fatalf("expected FetchFailed for oversized body, got %v", err)
	}
}

func TestFetchWarnsOnContentTypeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	doc, err := New(Options{Logger: logger}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("content type mismatch must not fail the fetch: %v", err)
	}
	if len(doc.Data) == 0 {
		t.Fatalf("expected body")
	}
	if !strings.Contains(logs.String(), "parse.fetch.content_type_mismatch") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
}

func TestFetchRejectsNonHTTPReference(t *testing.T) {
	_, err := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}).Fetch(context.Background(), "file:///etc/passwd")
	if !domain.IsKind(err, domain.ErrInvalidReference) {
		t.Fatalf("expected InvalidReference, got %v", err)
	}
}
