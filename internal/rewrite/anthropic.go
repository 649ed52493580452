package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured
const DefaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicBackend rewrites text with the Claude Messages API
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates a backend. Extra request options are passed to the
// SDK client, e.g. option.WithBaseURL.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *AnthropicBackend {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicBackend{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 2000,
	}
}

// Rewrite implements Backend
func (b *AnthropicBackend) Rewrite(ctx context.Context, text, directive string) (string, error) {
	prompt := fmt.Sprintf(`%s

Return ONLY the rewritten text, no commentary.

Text:
%s`, directive, text)

	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			if out := strings.TrimSpace(block.Text); out != "" {
				return out, nil
			}
		}
	}
	return "", errors.New("claude returned no text")
}
