package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReference        = errors.New("invalid document reference")
	ErrFetchFailed             = errors.New("document fetch failed")
	ErrNotAPDF                 = errors.New("document is not a pdf")
	ErrExtractionFailed        = errors.New("text extraction failed")
	ErrInsufficientContent     = errors.New("insufficient text content")
	ErrExtractionServiceFailed = errors.New("extraction service failed")
	ErrValidationFailed        = errors.New("equipment validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInternal                = errors.New("internal error")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrTemporary    = errors.New("temporary failure")
)

// GenericInternalMessage is the only text callers see for unexpected failures.
const GenericInternalMessage = "An unexpected error occurred while parsing the document"

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// PipelineError is a stage failure with a caller-safe message. Cause is for logs only.
type PipelineError struct {
	Kind    error
	Message string
	Cause   error
}

func NewPipelineError(kind error, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// PublicMessage returns the text that may be shown to a caller for err.
// Anything that is not a PipelineError collapses to the generic internal message.
func PublicMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Message != "" && !errors.Is(pe.Kind, ErrInternal) {
		return pe.Message
	}
	return GenericInternalMessage
}

var errorCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidReference, "invalid_reference"},
	{ErrFetchFailed, "fetch_failed"},
	{ErrNotAPDF, "not_a_pdf"},
	{ErrExtractionFailed, "extraction_failed"},
	{ErrInsufficientContent, "insufficient_content"},
	{ErrExtractionServiceFailed, "extraction_service_failed"},
	{ErrValidationFailed, "validation_failed"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidInput, "invalid_input"},
	{ErrNotFound, "not_found"},
	{ErrTemporary, "temporary"},
}

// ErrorCode is a stable snake_case name for the kind carried by err.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return ec.code
		}
	}
	return "internal_error"
}
