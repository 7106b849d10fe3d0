package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/genai"

	"github.com/brentyJ/recog/pkg/llm"
)

// GeminiProvider wraps Google's GenAI SDK behind llm.Provider; it is the
// third link in the default failover chain.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini builds a provider bound to a single default model. ctx is used
// only to construct the client, not retained.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Generate issues a single-turn content-generation call and adapts the
// response.
func (p *GeminiProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		if isGeminiTransient(err) {
			return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrTransient, err)
		}
		return llm.Response{}, err
	}

	var usage llm.Usage
	if resp.UsageMetadata != nil {
		usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return llm.Response{
		Success: true,
		Content: resp.Text(),
		Model:   p.model,
		Usage:   usage,
	}, nil
}

func isGeminiTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}
