package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
)

type parserFake struct {
	result  domain.ParseResult
	lastURL string
	upload  []byte
}

func (f *parserFake) Parse(_ context.Context, documentURL string) domain.ParseResult {
	f.lastURL = documentURL
	return f.result
}

func (f *parserFake) ParseUpload(_ context.Context, data []byte) domain.ParseResult {
	f.upload = data
	return f.result
}

func execute(t *testing.T, parser *parserFake, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr, func(string) (ports.EquipmentParser, error) {
		return parser, nil
	})
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestParseURLPrintsEnvelope(t *testing.T) {
	parser := &parserFake{result: domain.SucceededResult(domain.EquipmentRecord{
		Name:     "Hybrid Inverter",
		Category: domain.CategoryInverter,
		IsActive: true,
	}, 0.85)}

	out, err := execute(t, parser, "parse", "--url", "https://example.com/inv.pdf")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if decoded["success"] != true || parser.lastURL != "https://example.com/inv.pdf" {
		t.Fatalf("unexpected output %+v", decoded)
	}
}

func TestParseFileReadsBytesAndFailsOnErrorEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	parser := &parserFake{result: domain.FailedResult(domain.NewPipelineError(domain.ErrNotAPDF, "The document is not a valid PDF", nil), nil)}

	out, err := execute(t, parser, "parse", "--file", path)
	if !errors.Is(err, errParseFailed) {
		t.Fatalf("expected errParseFailed, got %v", err)
	}
	if string(parser.upload) != "not a pdf" {
		t.Fatalf("unexpected upload bytes %q", parser.upload)
	}
	if !bytes.Contains([]byte(out), []byte(`"success":false`)) {
		t.Fatalf("envelope must still be printed, got %q", out)
	}
}

func TestParseRequiresExactlyOneSource(t *testing.T) {
	if _, err := execute(t, &parserFake{}, "parse"); err == nil {
		t.Fatalf("expected error without --url or --file")
	}
	if _, err := execute(t, &parserFake{}, "parse", "--url", "https://x/a.pdf", "--file", "a.pdf"); err == nil {
		t.Fatalf("expected error with both --url and --file")
	}
}
