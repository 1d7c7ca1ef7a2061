package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// ErrNoLLMConfigured is returned by a chain with no providers.
var ErrNoLLMConfigured = errors.New("conversation: no llm provider configured")

// FallbackLLMClient tries each provider in order until one succeeds.
type FallbackLLMClient struct {
	providers []namedClient
	logger    *logging.Logger
}

type namedClient struct {
	name   string
	client LLMClient
}

// NewFallbackLLMClient creates a chain starting with primary. A nil fallback
// leaves a single-provider chain.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &FallbackLLMClient{logger: logger}
	if primary != nil {
		c.providers = append(c.providers, namedClient{name: "primary", client: primary})
	}
	if fallback != nil {
		c.providers = append(c.providers, namedClient{name: "fallback", client: fallback})
	}
	return c
}

// Complete returns the first successful provider response, or the last
// provider's error.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(c.providers) == 0 {
		return LLMResponse{}, ErrNoLLMConfigured
	}

	var lastErr error
	for i, p := range c.providers {
		resp, err := p.client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback LLM succeeded after primary failure", "provider", p.name)
			}
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("LLM provider failed",
			"provider", p.name,
			"error", err.Error(),
			"remaining", len(c.providers)-i-1,
		)
	}
	return LLMResponse{}, lastErr
}
