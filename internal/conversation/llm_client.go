package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a provider-neutral chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient completes a chat request.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

const (
	defaultResponderTimeout = 20 * time.Second
	responderMaxTokens      = 400
	responderTemperature    = 0.4
)

// LLMResponder answers free-text questions the rule tables did not
// recognise, grounded by the clinic system prompt.
type LLMResponder struct {
	client  LLMClient
	model   string
	prompt  func(time.Time) string
	timeout time.Duration
	now     func() time.Time
}

// NewLLMResponder builds a responder. prompt is evaluated per request so it
// can mention whether the clinic is currently open.
func NewLLMResponder(client LLMClient, model string, prompt func(time.Time) string, timeout time.Duration) *LLMResponder {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultResponderTimeout
	}
	return &LLMResponder{client: client, model: model, prompt: prompt, timeout: timeout, now: time.Now}
}

// Respond returns a single assistant reply to utterance.
func (r *LLMResponder) Respond(ctx context.Context, utterance string) (string, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", errors.New("conversation: empty utterance")
	}
	if verdict := ScanInput(utterance); verdict.Blocked {
		return "", fmt.Errorf("%w: %s", ErrBlockedInput, strings.Join(verdict.Reasons, ","))
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := LLMRequest{
		Model:       r.model,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: utterance}},
		MaxTokens:   responderMaxTokens,
		Temperature: responderTemperature,
	}
	if r.prompt != nil {
		req.System = []string{r.prompt(r.now())}
	}

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("conversation: llm returned empty text")
	}
	text, reasons, err := ScanOutput(text)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.Join(reasons, ","))
	}
	return text, nil
}
