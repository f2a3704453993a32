package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/llm"
)

const systemPrompt = "You convert solar equipment datasheets into structured catalog data. Return ONLY JSON that matches the provided schema."

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Extract implements ports.StructuredExtractor with a single chat/completions call.
func (c *Client) Extract(ctx context.Context, prompt string, schema map[string]any) (domain.Extraction, error) {
	rid := uuid.NewString()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", provider,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "equipment_extraction",
				"schema": schema,
				"strict": false,
			},
		},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	var raw []byte
	call := func(ctx context.Context) error {
		var err error
		raw, err = c.post(ctx, c.cfg.BaseURL+"/chat/completions", body)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.chat_completions", call, llm.Classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return domain.Extraction{}, llm.WrapTemporaryIfNeeded("openai chat completions", err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return domain.Extraction{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return domain.Extraction{}, fmt.Errorf("%w: no choices in openai response", llm.ErrMalformedResponse)
	}

	extraction, err := llm.DecodeExtraction(cc.Choices[0].Message.Content)
	if err != nil {
		c.log.Error("llm.extract.envelope_error",
			"req_id", rid, "error", err, "finish_reason", cc.Choices[0].FinishReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return domain.Extraction{}, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"confidence", extraction.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extraction, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("llm.extract.body_close_error", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, llm.StatusError(provider, "chat completions", resp)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	return buf.Bytes(), nil
}
