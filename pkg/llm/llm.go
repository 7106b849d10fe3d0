// Package llm provides a provider-agnostic interface to large language
// models plus a router that fails over across providers with a circuit
// breaker and bounded retries.
package llm

import (
	"context"
	"errors"
)

// Usage reports token accounting for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the provider-agnostic result of a generate call, matching the
// external LLM Provider Interface's LLMResponse shape.
type Response struct {
	Success bool
	Content string
	Error   string
	Usage   Usage
	Model   string
}

// Request bundles the generate parameters common across providers.
type Request struct {
	Prompt      string
	System      string
	Temperature float64 // [0,1]
	MaxTokens   int
}

// Provider is one backend capable of generating a completion. Implementations
// wrap a single vendor SDK (Anthropic, OpenAI, Gemini).
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// ErrTransient marks an error as retryable (timeouts, 429s, 5xxs). Providers
// wrap underlying SDK errors with this sentinel via fmt.Errorf("%w: ...") so the
// router's backoff only retries what's worth retrying.
var ErrTransient = errors.New("llm: transient provider error")
