package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/config"
)

func TestNewParserRejectsUnknownProvider(t *testing.T) {
	_, err := NewParser(config.Config{LLMProvider: "bard", LLMModel: "x"}, Options{})
	if err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestNewParserRejectsInvalidReferenceWithoutNetwork(t *testing.T) {
	parser, err := NewParser(config.Config{LLMProvider: config.LLMProviderOllama, LLMModel: "llama3.1:8b"}, Options{})
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res := parser.Parse(ctx, "not a url")
	if res.Success || res.Error == "" {
		t.Fatalf("expected invalid reference failure, got %+v", res)
	}
}

func TestBreakerConfigOverrides(t *testing.T) {
	out := breakerConfig(config.Config{BreakerFailureRatio: 0.8, BreakerMinRequests: 3, BreakerOpenTimeoutSecs: 7})
	if out.BreakerFailureRatio != 0.8 || out.BreakerMinRequests != 3 || out.BreakerOpenTimeout != 7*time.Second {
		t.Fatalf("unexpected breaker config: %+v", out)
	}
	if out.SingleAttempt().RetryMaxAttempts != 1 {
		t.Fatalf("model calls must never retry")
	}
}
