package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/dental-assistant/internal/clinic"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// BuildResponder wires the LLM chain that answers free-form questions the
// intent tables do not cover. It returns a nil responder when LLM_PROVIDER
// is "none" or nothing is configured; the dialog then uses the catalog
// default entry. The returned cleanup func is never nil.
func BuildResponder(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, profiles clinic.ProfileStore, logger *logging.Logger) (dialog.Responder, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if provider == "none" {
		logger.Info("fallback responder disabled")
		return nil, noop, nil
	}

	var primary, secondary conversation.LLMClient
	cleanup := noop

	wantBedrock := provider == "auto" || provider == "bedrock"
	if wantBedrock && cfg.BedrockModelID != "" {
		if awsCfg == nil {
			return nil, noop, fmt.Errorf("bootstrap: bedrock requires aws config")
		}
		primary = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg))
		logger.Info("bedrock responder enabled", "model", cfg.BedrockModelID)
	}

	wantGemini := provider == "auto" || provider == "gemini"
	if wantGemini && cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		cleanup = func() { _ = gemini.Close() }
		if primary == nil {
			primary = gemini
		} else {
			secondary = gemini
		}
		logger.Info("gemini responder enabled", "model", cfg.GeminiModelID, "role", roleOf(secondary == nil))
	}

	if primary == nil {
		logger.Warn("no LLM configured; unmatched questions get the default reply", "provider", provider)
		return nil, cleanup, nil
	}

	chain := conversation.NewFallbackLLMClient(primary, secondary, logger)
	return conversation.NewLLMResponder(chain, cfg.BedrockModelID, promptFor(profiles, logger), cfg.LLMTimeout), cleanup, nil
}

func roleOf(primary bool) string {
	if primary {
		return "primary"
	}
	return "fallback"
}

// promptFor reads the profile on every call so admin edits apply at once.
func promptFor(profiles clinic.ProfileStore, logger *logging.Logger) func(time.Time) string {
	return func(now time.Time) string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		profile, err := profiles.Get(ctx)
		if err != nil {
			logger.Warn("failed to load clinic profile for prompt", "error", err)
			return ""
		}
		return profile.SystemPrompt(now)
	}
}
