package llm

import (
	"errors"
	"net/http"
	"testing"
)

func TestDecodeExtraction(t *testing.T) {
	content := "```json\n{\"equipment\": {\"name\": \"Panel\"}, \"confidence\": 0.83, \"reasoning\": \" header table \"}\n```"

	got, err := DecodeExtraction(content)
	if err != nil {
		t.Fatalf("DecodeExtraction() error = %v", err)
	}
	if string(got.Candidate) != `{"name": "Panel"}` {
		t.Fatalf("unexpected candidate %s", got.Candidate)
	}
	if got.Confidence != 0.83 || got.Reasoning != "header table" {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

func TestDecodeExtractionAcceptsStringConfidence(t *testing.T) {
	got, err := DecodeExtraction(`{"equipment": {}, "confidence": "0.5", "reasoning": ""}`)
	if err != nil {
		t.Fatalf("DecodeExtraction() error = %v", err)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("unexpected confidence %v", got.Confidence)
	}
}

func TestDecodeExtractionRejectsMissingEquipment(t *testing.T) {
	_, err := DecodeExtraction(`{"confidence": 0.9}`)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}

	_, err = DecodeExtraction("I could not read this datasheet.")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response for prose, got %v", err)
	}
}

func TestClassifyStatusErrors(t *testing.T) {
	retryable := Classify(&HTTPStatusError{StatusCode: http.StatusServiceUnavailable})
	if !retryable.Retryable || !retryable.RecordFailure {
		t.Fatalf("503 must be retryable and recorded: %+v", retryable)
	}
	permanent := Classify(&HTTPStatusError{StatusCode: http.StatusBadRequest})
	if permanent.Retryable || permanent.RecordFailure {
		t.Fatalf("400 must not trip the breaker: %+v", permanent)
	}
}
