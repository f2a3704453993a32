package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
	"github.com/kirillkom/solar-equipment-parser/internal/core/validation"
)

const (
	DefaultMaxPromptChars = 8000
	DefaultMinTextChars   = 50

	sourceURL    = "url"
	sourceUpload = "upload"
)

var pdfSignature = []byte("%PDF")

const (
	msgInvalidReference    = "Invalid document URL: an absolute http or https URL is required"
	msgFetchFailed         = "Failed to fetch document"
	msgNotAPDF             = "The document is not a valid PDF"
	msgExtractionFailed    = "The document is not a valid or readable PDF"
	msgInsufficientContent = "Insufficient text content: the document appears to be empty or contains only images"
	msgServiceFailed       = "Failed to extract equipment data from the document"
	msgValidationPrefix    = "Extracted equipment data is invalid: "
	msgInterrupted         = "Parsing was cancelled or timed out before it finished"
)

type ParserConfig struct {
	MaxPromptChars int
	MinTextChars   int
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{MaxPromptChars: DefaultMaxPromptChars, MinTextChars: DefaultMinTextChars}
}

type ParseEquipmentUseCase struct {
	fetcher   ports.DocumentFetcher
	extractor ports.TextExtractor
	llm       ports.StructuredExtractor
	validator *validation.Validator
	observer  ports.ParseObserver
	cfg       ParserConfig
	logger    *slog.Logger
}

func NewParseEquipmentUseCase(
	fetcher ports.DocumentFetcher,
	extractor ports.TextExtractor,
	llm ports.StructuredExtractor,
	validator *validation.Validator,
	observer ports.ParseObserver,
	cfg ParserConfig,
	logger *slog.Logger,
) *ParseEquipmentUseCase {
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = DefaultMinTextChars
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseEquipmentUseCase{
		fetcher:   fetcher,
		extractor: extractor,
		llm:       llm,
		validator: validator,
		observer:  observer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Parse runs the full pipeline for a document URL.
func (uc *ParseEquipmentUseCase) Parse(ctx context.Context, documentURL string) domain.ParseResult {
	return uc.run(ctx, sourceURL, func(ctx context.Context) ([]byte, error) {
		ref, err := parseReference(documentURL)
		if err != nil {
			return nil, err
		}
		return uc.fetch(ctx, ref)
	})
}

// ParseUpload runs the pipeline for bytes that were uploaded directly.
func (uc *ParseEquipmentUseCase) ParseUpload(ctx context.Context, data []byte) domain.ParseResult {
	return uc.run(ctx, sourceUpload, func(context.Context) ([]byte, error) {
		return data, nil
	})
}

func (uc *ParseEquipmentUseCase) run(
	ctx context.Context,
	source string,
	acquire func(context.Context) ([]byte, error),
) (result domain.ParseResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("parse.panic", "source", source, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = domain.FailedResult(
				domain.NewPipelineError(domain.ErrInternal, domain.GenericInternalMessage, fmt.Errorf("panic: %v", r)),
				nil,
			)
		}
		uc.finish(source, result, started)
	}()

	return uc.pipeline(ctx, acquire)
}

func (uc *ParseEquipmentUseCase) pipeline(ctx context.Context, acquire func(context.Context) ([]byte, error)) domain.ParseResult {
	data, err := timed(uc.observer, "acquire", func() ([]byte, error) { return acquire(ctx) })
	if err != nil {
		return domain.FailedResult(err, nil)
	}
	if err := checkSignature(data); err != nil {
		return domain.FailedResult(err, nil)
	}

	text, err := uc.extractText(ctx, data)
	if err != nil {
		return domain.FailedResult(err, nil)
	}

	extraction, err := uc.extractStructured(ctx, text)
	if err != nil {
		return domain.FailedResult(err, nil)
	}
	confidence := clampConfidence(extraction.Confidence)
	uc.observer.ObserveConfidence(confidence)

	record, err := uc.validate(extraction)
	if err != nil {
		return domain.FailedResult(err, &confidence)
	}
	return domain.SucceededResult(*record, confidence)
}

func (uc *ParseEquipmentUseCase) fetch(ctx context.Context, ref *url.URL) ([]byte, error) {
	doc, err := uc.fetcher.Fetch(ctx, ref.String())
	if err != nil {
		return nil, stageError(err, domain.ErrFetchFailed, msgFetchFailed)
	}
	return doc.Data, nil
}

func (uc *ParseEquipmentUseCase) extractText(ctx context.Context, data []byte) (string, error) {
	text, err := timed(uc.observer, "extract_text", func() (string, error) {
		return uc.extractor.Extract(ctx, data)
	})
	if err != nil {
		return "", stageError(err, domain.ErrExtractionFailed, msgExtractionFailed)
	}

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < uc.cfg.MinTextChars {
		return "", domain.NewPipelineError(
			domain.ErrInsufficientContent,
			msgInsufficientContent,
			fmt.Errorf("extracted %d characters, need at least %d", n, uc.cfg.MinTextChars),
		)
	}
	return text, nil
}

func (uc *ParseEquipmentUseCase) extractStructured(ctx context.Context, text string) (domain.Extraction, error) {
	promptText, truncated := truncateForPrompt(text, uc.cfg.MaxPromptChars)
	if truncated {
		uc.logger.Info("parse.prompt.truncated", "chars", utf8.RuneCountInString(text), "limit", uc.cfg.MaxPromptChars)
	}

	extraction, err := timed(uc.observer, "extract_structured", func() (domain.Extraction, error) {
		return uc.llm.Extract(ctx, buildExtractionPrompt(promptText), validation.ResponseSchema())
	})
	if err != nil {
		return domain.Extraction{}, stageError(err, domain.ErrExtractionServiceFailed, msgServiceFailed)
	}
	if extraction.Reasoning != "" {
		uc.logger.Debug("parse.llm.reasoning", "reasoning", extraction.Reasoning)
	}
	return extraction, nil
}

func (uc *ParseEquipmentUseCase) validate(extraction domain.Extraction) (*domain.EquipmentRecord, error) {
	started := time.Now()
	outcome := uc.validator.Check(extraction.Candidate)
	uc.observer.ObserveStage("validate", time.Since(started))

	if outcome.Repaired {
		uc.logger.Info("parse.validation.repaired", "first_pass", violationStrings(outcome.FirstPass))
	}
	if !outcome.Verdict.Valid() {
		msg := outcome.Verdict.Message()
		return nil, domain.NewPipelineError(domain.ErrValidationFailed, msgValidationPrefix+msg, errors.New(msg))
	}
	return outcome.Verdict.Record, nil
}

func (uc *ParseEquipmentUseCase) finish(source string, result domain.ParseResult, started time.Time) {
	elapsed := time.Since(started)
	code := "ok"
	if !result.Success {
		code = domain.ErrorCode(result.Cause())
	}
	uc.observer.ObserveOutcome(source, code, elapsed)

	if result.Success {
		uc.logger.Info("parse.completed",
			"source", source,
			"category", result.Equipment.Category,
			"confidence", *result.Confidence,
			"duration_ms", elapsed.Milliseconds(),
		)
		return
	}

	level := slog.LevelWarn
	if code == "internal_error" || code == "extraction_service_failed" {
		level = slog.LevelError
	}
	uc.logger.Log(context.Background(), level, "parse.failed",
		"source", source,
		"code", code,
		"error", errorText(result.Cause()),
		"duration_ms", elapsed.Milliseconds(),
	)
}

func parseReference(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	ref, err := url.Parse(trimmed)
	if err != nil || trimmed == "" {
		return nil, domain.NewPipelineError(domain.ErrInvalidReference, msgInvalidReference, err)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return nil, domain.NewPipelineError(
			domain.ErrInvalidReference,
			msgInvalidReference,
			fmt.Errorf("unsupported reference %q", trimmed),
		)
	}
	return ref, nil
}

func checkSignature(data []byte) error {
	if !bytes.HasPrefix(data, pdfSignature) {
		return domain.NewPipelineError(domain.ErrNotAPDF, msgNotAPDF, fmt.Errorf("leading bytes %q", leadingBytes(data)))
	}
	return nil
}

// stageError keeps caller-safe messages produced by adapters and classifies anything else.
func stageError(err error, kind error, message string) error {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewPipelineError(domain.ErrTemporary, msgInterrupted, err)
	}
	for _, known := range []error{domain.ErrInvalidReference, domain.ErrNotAPDF, domain.ErrInsufficientContent} {
		if domain.IsKind(err, known) {
			return domain.NewPipelineError(known, defaultMessage(known), err)
		}
	}
	return domain.NewPipelineError(kind, message, err)
}

func defaultMessage(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrInvalidReference):
		return msgInvalidReference
	case errors.Is(kind, domain.ErrNotAPDF):
		return msgNotAPDF
	case errors.Is(kind, domain.ErrInsufficientContent):
		return msgInsufficientContent
	default:
		return domain.GenericInternalMessage
	}
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func leadingBytes(data []byte) []byte {
	if len(data) > 8 {
		return data[:8]
	}
	return data
}

func violationStrings(violations []validation.Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.String())
	}
	return out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func timed[T any](observer ports.ParseObserver, stage string, fn func() (T, error)) (T, error) {
	started := time.Now()
	out, err := fn()
	observer.ObserveStage(stage, time.Since(started))
	return out, err
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration)           {}
func (noopObserver) ObserveOutcome(string, string, time.Duration) {}
func (noopObserver) ObserveConfidence(float64)                    {}
