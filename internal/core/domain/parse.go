package domain

import "encoding/json"

// FetchedDocument is the raw payload returned by input acquisition.
type FetchedDocument struct {
	Data        []byte
	ContentType string
	SourceURL   string
}

// Extraction is what the hosted model returned for one prompt.
type Extraction struct {
	Candidate  json.RawMessage
	Confidence float64
	Reasoning  string
}

// ParseResult is the envelope returned by every parse invocation.
type ParseResult struct {
	Success    bool             `json:"success"`
	Equipment  *EquipmentRecord `json:"equipment,omitempty"`
	Error      string           `json:"error,omitempty"`
	Confidence *float64         `json:"confidence,omitempty"`

	cause error
}

func SucceededResult(record EquipmentRecord, confidence float64) ParseResult {
	rec := record
	conf := confidence
	return ParseResult{Success: true, Equipment: &rec, Confidence: &conf}
}

// FailedResult builds a failure envelope. confidence is nil unless structured extraction completed.
func FailedResult(err error, confidence *float64) ParseResult {
	if err == nil {
		err = NewPipelineError(ErrInternal, GenericInternalMessage, nil)
	}
	return ParseResult{
		Success:    false,
		Error:      PublicMessage(err),
		Confidence: confidence,
		cause:      err,
	}
}

// Cause is the error behind a failed result; it is never serialized.
func (r ParseResult) Cause() error {
	return r.cause
}
