package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

const schemaResource = "equipment.json"

type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string {
	return v.Path + ": " + v.Reason
}

// Verdict is either Valid (Record set) or Invalid (Violations set).
type Verdict struct {
	Record     *domain.EquipmentRecord
	Violations []Violation
}

func (v Verdict) Valid() bool {
	return v.Record != nil && len(v.Violations) == 0
}

// Message joins every violation as "path: reason" separated by ", ".
func (v Verdict) Message() string {
	parts := make([]string, 0, len(v.Violations))
	for _, violation := range v.Violations {
		parts = append(parts, violation.String())
	}
	return strings.Join(parts, ", ")
}

// Outcome records the verdict of the final pass and whether the repair step ran.
type Outcome struct {
	Verdict  Verdict
	Repaired bool
	// FirstPass holds the violations that triggered the repair step.
	FirstPass []Violation
}

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	raw, err := json.Marshal(EquipmentSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Check validates a raw model candidate, repairing it at most once.
func (v *Validator) Check(raw json.RawMessage) Outcome {
	candidate, err := decodeCandidate(raw)
	if err != nil {
		return Outcome{Verdict: Verdict{Violations: []Violation{{Path: "equipment", Reason: err.Error()}}}}
	}
	candidate = Normalize(candidate)

	first := v.Validate(candidate)
	if first.Valid() {
		return Outcome{Verdict: first}
	}

	second := v.Validate(ApplyDefaults(candidate))
	return Outcome{Verdict: second, Repaired: true, FirstPass: first.Violations}
}

// CheckStrict validates without the repair step. Used for records submitted by callers.
func (v *Validator) CheckStrict(raw json.RawMessage) Verdict {
	candidate, err := decodeCandidate(raw)
	if err != nil {
		return Verdict{Violations: []Violation{{Path: "equipment", Reason: err.Error()}}}
	}
	return v.Validate(Normalize(candidate))
}

// Validate runs one schema pass over candidate.
func (v *Validator) Validate(candidate map[string]any) Verdict {
	if err := v.schema.Validate(toSchemaValue(candidate)); err != nil {
		return Verdict{Violations: collectViolations(err)}
	}

	record, err := toRecord(candidate)
	if err != nil {
		return Verdict{Violations: []Violation{{Path: "equipment", Reason: err.Error()}}}
	}
	return Verdict{Record: &record}
}

func decodeCandidate(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("candidate is not valid JSON: %v", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New("expected a JSON object")
	}
	return obj, nil
}

// toSchemaValue round-trips through encoding/json so every nested value has a type the
// schema library understands.
func toSchemaValue(candidate map[string]any) any {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return candidate
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return candidate
	}
	return out
}

func toRecord(candidate map[string]any) (domain.EquipmentRecord, error) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return domain.EquipmentRecord{}, err
	}
	var record domain.EquipmentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.EquipmentRecord{}, err
	}
	if record.Specifications == nil {
		record.Specifications = []domain.Specification{}
	}
	return record, nil
}

func collectViolations(err error) []Violation {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Path: "equipment", Reason: err.Error()}}
	}

	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Path: fieldPath(e.InstanceLocation), Reason: e.Message})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// fieldPath turns a JSON pointer like /specifications/0/key into specifications.0.key.
func fieldPath(pointer string) string {
	trimmed := strings.Trim(pointer, "/")
	if trimmed == "" {
		return "equipment"
	}
	segments := strings.Split(trimmed, "/")
	for i, s := range segments {
		s = strings.ReplaceAll(s, "~1", "/")
		segments[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return strings.Join(segments, ".")
}
