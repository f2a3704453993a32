package validation

import (
	"encoding/json"
	"maps"
	"strings"
)

var optionalText = []string{"manufacturer", "model", "description", "warrantyPeriod"}

// Normalize prepares a candidate for the first pass without changing its meaning:
// null optional fields are treated as absent, the name is trimmed and specification
// pairs with an empty key or value are dropped. A blank name stays blank and fails.
func Normalize(candidate map[string]any) map[string]any {
	out := maps.Clone(candidate)

	if name, ok := out["name"].(string); ok {
		out["name"] = strings.TrimSpace(name)
	}

	for _, key := range optionalText {
		if v, ok := out[key]; ok && v == nil {
			delete(out, key)
		}
	}

	switch specs := out["specifications"].(type) {
	case nil:
		delete(out, "specifications")
	case []any:
		kept := make([]any, 0, len(specs))
		for _, item := range specs {
			pair, ok := item.(map[string]any)
			if !ok {
				kept = append(kept, item)
				continue
			}
			key, keyOK := pair["key"].(string)
			value, valueOK := pair["value"].(string)
			if !keyOK || !valueOK {
				kept = append(kept, item)
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key == "" || value == "" {
				continue
			}
			kept = append(kept, map[string]any{"key": key, "value": value})
		}
		out["specifications"] = kept
	}

	return out
}

// ApplyDefaults is the single repair step: price falls back to 0 and isActive to true
// when absent or invalid. No other field is synthesized.
func ApplyDefaults(candidate map[string]any) map[string]any {
	out := maps.Clone(candidate)
	if !validPrice(out["price"]) {
		out["price"] = 0.0
	}
	if _, ok := out["isActive"].(bool); !ok {
		out["isActive"] = true
	}
	return out
}

func validPrice(v any) bool {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return err == nil && f >= 0
	case float64:
		return n >= 0
	case int:
		return n >= 0
	default:
		return false
	}
}
