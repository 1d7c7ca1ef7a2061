package bootstrap

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

func TestBuildResponderRequiresConfig(t *testing.T) {
	if _, _, err := BuildResponder(context.Background(), nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildResponderDisabled(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "none", GeminiAPIKey: "key"}

	responder, cleanup, err := BuildResponder(context.Background(), cfg, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responder != nil {
		t.Fatalf("expected nil responder, got %T", responder)
	}
	cleanup()
}

func TestBuildResponderNothingConfigured(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "auto"}

	responder, cleanup, err := BuildResponder(context.Background(), cfg, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responder != nil {
		t.Fatalf("expected nil responder, got %T", responder)
	}
	if cleanup == nil {
		t.Fatalf("cleanup must never be nil")
	}
}

func TestBuildResponderBedrockNeedsAWSConfig(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku"}

	if _, _, err := BuildResponder(context.Background(), cfg, nil, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error when bedrock has no aws config")
	}
}
