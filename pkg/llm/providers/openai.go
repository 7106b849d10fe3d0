package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/brentyJ/recog/pkg/llm"
)

// OpenAIProvider wraps the chat completions API behind llm.Provider, used as
// the cost-efficient secondary in the default failover chain.
type OpenAIProvider struct {
	sdk   sdk.Client
	model string
}

// NewOpenAI builds a provider bound to a single default model.
func NewOpenAI(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		sdk:   sdk.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Generate issues a single-turn chat completion and adapts the response.
func (p *OpenAIProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := []sdk.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(p.model),
		Messages:    messages,
		Temperature: sdk.Float(req.Temperature),
		MaxTokens:   sdk.Int(int64(req.MaxTokens)),
	}

	resp, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		if isOpenAITransient(err) {
			return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrTransient, err)
		}
		return llm.Response{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Response{Success: false, Error: "openai: empty choices"}, nil
	}

	return llm.Response{
		Success: true,
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func isOpenAITransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}
