package usecase

import (
	"strings"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

// TruncationMarker is appended when the datasheet text was cut before reaching the model.
const TruncationMarker = "\n\n[Content truncated - the document continues beyond this point]"

// truncateForPrompt keeps the first maxChars characters of text. Text within the limit is
// returned unmodified.
func truncateForPrompt(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, false
	}
	return string(runes[:maxChars]) + TruncationMarker, true
}

func buildExtractionPrompt(documentText string) string {
	categories := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		categories = append(categories, `"`+string(c)+`"`)
	}

	parts := []string{
		"You extract solar equipment data from product datasheets.",
		"Read the datasheet text below and return a single JSON object with keys equipment, confidence and reasoning.",
		"equipment fields: name, category, manufacturer, model, description, price, specifications, warrantyPeriod, isActive.",
		"category must be exactly one of: " + strings.Join(categories, ", ") + ". No other value is allowed.",
		`Use "Other" only when none of the other categories fits.`,
		"isActive is always true.",
		"price is the listed unit price as a number without currency symbols; use 0 when no price is listed.",
		"specifications is a list of {key, value} pairs taken from the datasheet; both key and value must be non-empty.",
		`Use human-readable specification keys such as "Maximum Power" instead of abbreviations such as "Pmax", and keep units in the value.`,
		"warrantyPeriod is free text such as \"25 years\" and may be omitted when not stated.",
		"confidence is a number from 0 to 1 describing how sure you are about the extracted data.",
		"reasoning briefly explains which parts of the datasheet the values came from.",
		"Datasheet text:",
		documentText,
	}
	return strings.Join(parts, "\n")
}
