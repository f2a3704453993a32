package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "api", "warn")

	logger.Debug("parse.llm.reasoning", "reasoning", "hidden")
	logger.Info("parse.completed")
	if buf.Len() != 0 {
		t.Fatalf("debug and info must be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("parse.fetch.content_type_mismatch", "content_type", "text/html")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line: %v", err)
	}
	if entry["service"] != "api" || entry["msg"] != "parse.fetch.content_type_mismatch" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}
