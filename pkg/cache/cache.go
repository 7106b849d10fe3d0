// Package cache provides a content-addressed, read-through cache of LLM
// responses sitting in front of pkg/llm's Router, plus the cost ledger
// bookkeeping that rides along with every call.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/brentyJ/recog/pkg/cost"
	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// Backend is the durable half of the cache: a place to put and get raw
// cache-entry bytes by key. pkg/store's PostgresStore satisfies this
// directly; Backend exists so a filesystem implementation can stand in for
// it per spec's "two selectable backends" requirement.
type Backend interface {
	GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error
}

// Cache wraps a Backend with key derivation, single-flight call
// deduplication, and cost-ledger recording.
type Cache struct {
	backend Backend
	ledger  store.Store
	group   singleflight.Group
	ttl     *time.Duration
}

// New builds a Cache. ledger is used only to append CostLedgerRow entries;
// backend holds the actual cached responses, and may or may not be the same
// object as ledger (it is, when using the Postgres-backed store directly).
func New(backend Backend, ledger store.Store, ttl *time.Duration) *Cache {
	return &Cache{backend: backend, ledger: ledger, ttl: ttl}
}

// Key derives the blake2b content-address of a call per spec §4.4: the
// prompt is normalised by stripping trailing whitespace only, everything
// else participates bit-exact.
func Key(provider, model, prompt, system string, temperature float64, maxTokens int) string {
	h, _ := blake2b.New256(nil)
	normalisedPrompt := strings.TrimRight(prompt, " \t\r\n")
	parts := []string{
		provider, model, normalisedPrompt, system,
		strconv.FormatFloat(temperature, 'f', -1, 64),
		strconv.Itoa(maxTokens),
	}
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0}) // field separator guards against concatenation collisions
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Generate is the read-through entrypoint: on a cache hit it records a
// zero-cost ledger row and returns the cached response; on a miss it calls
// through to the router, persists the result, and records a priced ledger
// row. Concurrent callers for the same key share one router call
// (golang.org/x/sync/singleflight), satisfying the single-flight invariant.
func (c *Cache) Generate(ctx context.Context, router *llm.Router, provider, model string, req llm.Request, caseID *string, purpose string) (llm.Response, error) {
	key := Key(provider, model, req.Prompt, req.System, req.Temperature, req.MaxTokens)

	if entry, err := c.backend.GetCacheEntry(ctx, key); err == nil {
		var resp llm.Response
		if jsonErr := json.Unmarshal(entry.Value, &resp); jsonErr == nil {
			entry.Hits++
			_ = c.backend.PutCacheEntry(ctx, entry)
			c.recordLedger(ctx, caseID, provider, model, purpose, resp.Usage, true)
			return resp, nil
		}
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := router.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		value, marshalErr := json.Marshal(resp)
		if marshalErr != nil {
			return nil, fmt.Errorf("marshalling response for cache key %s: %w", key, marshalErr)
		}
		entry := &models.CacheEntry{
			Key:       key,
			Provider:  provider,
			Model:     model,
			Value:     value,
			CreatedAt: time.Now(),
			TTL:       c.ttl,
		}
		if putErr := c.backend.PutCacheEntry(ctx, entry); putErr != nil {
			return nil, putErr
		}
		return resp, nil
	})
	if err != nil {
		return llm.Response{}, err
	}
	resp := result.(llm.Response)
	c.recordLedger(ctx, caseID, provider, model, purpose, resp.Usage, false)
	return resp, nil
}

func (c *Cache) recordLedger(ctx context.Context, caseID *string, provider, model, purpose string, usage llm.Usage, cached bool) {
	costCents := 0.0
	if !cached {
		costCents = cost.Estimate(model, usage.PromptTokens, usage.CompletionTokens)
	}
	row := &models.CostLedgerRow{
		ID:           models.NewID(),
		CaseID:       caseID,
		Provider:     provider,
		Model:        model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		CostCents:    costCents,
		Purpose:      purpose,
		Cached:       cached,
		At:           time.Now(),
	}
	_ = c.ledger.AppendCostLedger(ctx, row)
}
