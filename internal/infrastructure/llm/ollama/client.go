package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/llm"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/resilience"
)

const provider = "ollama"

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
	Logger   *slog.Logger
}

// Client is a StructuredExtractor backed by a local Ollama server. The response
// schema is passed as the generate "format" so decoding is constrained server side.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL, model string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
		logger:     logger,
	}
}

func (c *Client) Extract(ctx context.Context, prompt string, schema map[string]any) (domain.Extraction, error) {
	started := time.Now()
	reqBody := map[string]any{
		"model":   c.model,
		"prompt":  prompt,
		"stream":  false,
		"format":  schema,
		"options": map[string]any{"temperature": 0},
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, llm.Classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		c.logger.Error("llm.extract.http_error", "provider", provider, "model", c.model, "error", err,
			"elapsed_ms", time.Since(started).Milliseconds())
		return domain.Extraction{}, llm.WrapTemporaryIfNeeded("ollama generate", err)
	}

	extraction, err := llm.DecodeExtraction(response.Response)
	if err != nil {
		c.logger.Error("llm.extract.decode_error", "provider", provider, "error", err, "raw_bytes", len(response.Response))
		return domain.Extraction{}, fmt.Errorf("decode ollama extraction: %w", err)
	}
	c.logger.Info("llm.extract.ok", "provider", provider, "model", c.model, "confidence", extraction.Confidence,
		"elapsed_ms", time.Since(started).Milliseconds())
	return extraction, nil
}
