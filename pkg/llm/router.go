package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// circuitBreakerThreshold and circuitBreakerCooldown mirror the original
// router's "3 consecutive failures -> 5 minute cooldown" policy.
const (
	circuitBreakerThreshold = 3
	circuitBreakerCooldown  = 5 * time.Minute
)

type providerHealth struct {
	mu            sync.Mutex
	failures      int
	cooldownUntil time.Time
}

func (h *providerHealth) healthy(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cooldownUntil.IsZero() {
		return true
	}
	if now.After(h.cooldownUntil) {
		h.failures = 0
		h.cooldownUntil = time.Time{}
		return true
	}
	return false
}

func (h *providerHealth) recordFailure(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	if h.failures >= circuitBreakerThreshold {
		h.cooldownUntil = now.Add(circuitBreakerCooldown)
	}
}

func (h *providerHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.cooldownUntil = time.Time{}
}

// AllProvidersFailedError aggregates the per-provider errors from a fully
// exhausted failover chain.
type AllProvidersFailedError struct {
	Attempts map[string]error
}

func (e *AllProvidersFailedError) Error() string {
	msg := "llm: all providers failed:"
	for name, err := range e.Attempts {
		msg += fmt.Sprintf(" %s=%v;", name, err)
	}
	return msg
}

// RouterConfig configures retry/timeout behaviour. MaxRetries is the number
// of retries after the first attempt, per provider, not across the whole
// chain (MaxRetries = 0 means one attempt per provider).
type RouterConfig struct {
	ProviderPreference []string
	MaxRetries         int
	CallTimeout        time.Duration
	MinBackoff         time.Duration
	MaxBackoff         time.Duration
}

// DefaultRouterConfig matches the original router's defaults (2 retries,
// 2s-10s exponential backoff, 30s call timeout).
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ProviderPreference: []string{"anthropic", "openai", "gemini"},
		MaxRetries:         2,
		CallTimeout:        30 * time.Second,
		MinBackoff:         2 * time.Second,
		MaxBackoff:         10 * time.Second,
	}
}

// Router dispatches generate calls across a preference-ordered chain of
// providers, skipping any currently tripped by its circuit breaker, and
// retrying transient failures with bounded exponential backoff before
// failing over to the next provider.
type Router struct {
	cfg       RouterConfig
	chain     []Provider
	byName    map[string]Provider
	health    map[string]*providerHealth
	rateLimit *RateLimiter
}

// NewRouter builds a router over the given providers, ordered and filtered by
// cfg.ProviderPreference (providers not in the preference list are dropped,
// matching the original's "only providers with configured API keys are
// eligible" behaviour).
func NewRouter(cfg RouterConfig, providers []Provider, rl *RateLimiter) (*Router, error) {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	var chain []Provider
	health := make(map[string]*providerHealth)
	for _, name := range cfg.ProviderPreference {
		p, ok := byName[name]
		if !ok {
			continue
		}
		chain = append(chain, p)
		health[name] = &providerHealth{}
	}
	if len(chain) == 0 {
		return nil, errors.New("llm: no configured providers match preference chain")
	}
	return &Router{cfg: cfg, chain: chain, byName: byName, health: health, rateLimit: rl}, nil
}

// Generate tries each healthy provider in chain order, retrying transient
// errors per-provider before failing over, and returns the first success.
func (r *Router) Generate(ctx context.Context, req Request) (Response, error) {
	if r.rateLimit != nil {
		if err := r.rateLimit.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("llm: rate limiter: %w", err)
		}
	}

	attempts := make(map[string]error, len(r.chain))
	now := time.Now()
	for _, p := range r.chain {
		name := p.Name()
		h := r.health[name]
		if !h.healthy(now) {
			attempts[name] = errors.New("in cooldown")
			continue
		}

		resp, err := r.callWithRetry(ctx, p, req)
		if err == nil && resp.Success {
			h.recordSuccess()
			return resp, nil
		}
		if err == nil {
			err = errors.New(resp.Error)
		}
		slog.Warn("llm provider failed", "provider", name, "error", err)
		attempts[name] = err
		h.recordFailure(now)
	}
	return Response{}, &AllProvidersFailedError{Attempts: attempts}
}

func (r *Router) callWithRetry(ctx context.Context, p Provider, req Request) (Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.MinBackoff
	bo.MaxInterval = r.cfg.MaxBackoff
	bo.MaxElapsedTime = r.cfg.CallTimeout
	bounded := backoff.WithMaxRetries(bo, uint64(r.cfg.MaxRetries))

	var resp Response
	operation := func() error {
		var err error
		resp, err = p.Generate(callCtx, req)
		if err != nil && errors.Is(err, ErrTransient) {
			return err // retryable
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bounded, callCtx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return Response{}, perm.Unwrap()
		}
		return Response{}, err
	}
	return resp, nil
}
