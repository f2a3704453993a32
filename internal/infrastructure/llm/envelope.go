package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

// ErrMalformedResponse marks model output that is not the requested JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

type envelope struct {
	Equipment  json.RawMessage `json:"equipment"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// DecodeExtraction reads {equipment, confidence, reasoning} from model output. The
// equipment object is passed through untouched for validation.
func DecodeExtraction(content string) (domain.Extraction, error) {
	raw := ExtractJSONObject(strings.TrimSpace(content))
	if raw == "" {
		return domain.Extraction{}, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return domain.Extraction{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(bytes.TrimSpace(env.Equipment)) == 0 {
		return domain.Extraction{}, fmt.Errorf("%w: missing equipment object", ErrMalformedResponse)
	}

	return domain.Extraction{
		Candidate:  env.Equipment,
		Confidence: parseConfidence(env.Confidence),
		Reasoning:  strings.TrimSpace(env.Reasoning),
	}, nil
}

// ExtractJSONObject trims prose or code fences around the outermost JSON object.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func parseConfidence(raw json.RawMessage) float64 {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return v
}
