package validation

import "github.com/kirillkom/solar-equipment-parser/internal/core/domain"

// EquipmentSchema returns the JSON Schema (draft 2020-12 subset) an accepted record must satisfy.
// The same map is embedded in the response schema sent to the model.
func EquipmentSchema() map[string]any {
	categories := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		categories = append(categories, string(c))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":         map[string]any{"type": "string", "minLength": 1},
			"category":     map[string]any{"type": "string", "enum": categories},
			"manufacturer": map[string]any{"type": "string"},
			"model":        map[string]any{"type": "string"},
			"description":  map[string]any{"type": "string"},
			"price":        map[string]any{"type": "number", "minimum": 0},
			"specifications": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"key":   map[string]any{"type": "string", "minLength": 1},
						"value": map[string]any{"type": "string", "minLength": 1},
					},
					"required": []string{"key", "value"},
				},
			},
			"warrantyPeriod": map[string]any{"type": "string"},
			"isActive":       map[string]any{"type": "boolean"},
		},
		"required": []string{"name", "category", "price", "isActive"},
	}
}

// ResponseSchema wraps the equipment schema with the model's self-assessment fields.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"equipment":  EquipmentSchema(),
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"reasoning":  map[string]any{"type": "string"},
		},
		"required": []string{"equipment", "confidence", "reasoning"},
	}
}
