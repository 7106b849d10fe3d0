// Package providers holds one file per vendor SDK, each implementing
// llm.Provider.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/brentyJ/recog/pkg/llm"
)

// AnthropicProvider wraps the Claude messages API behind llm.Provider.
type AnthropicProvider struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropic builds a provider bound to a single model; llm.Request has no
// model field, so every call through this provider uses that model.
func NewAnthropic(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		sdk:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate issues a single-turn messages call and adapts the response into
// the provider-agnostic shape the router understands.
func (p *AnthropicProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.sdk.Messages.New(ctx, params)
	if err != nil {
		if isTransient(err) {
			return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrTransient, err)
		}
		return llm.Response{}, err
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return llm.Response{
		Success: true,
		Content: content,
		Model:   string(msg.Model),
		Usage: llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

// isTransient classifies network-level and 429/5xx errors as retryable,
// leaving 4xx auth/validation errors to fail over immediately.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}
