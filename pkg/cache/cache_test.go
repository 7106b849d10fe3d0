package cache

import (
	"context"
	"testing"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_DeterministicForIdenticalInputs(t *testing.T) {
	a := Key("anthropic", "claude-sonnet-4", "hello", "system", 0.3, 1000)
	b := Key("anthropic", "claude-sonnet-4", "hello", "system", 0.3, 1000)
	assert.Equal(t, a, b)
}

func TestKey_OnlyStripsTrailingWhitespaceFromPrompt(t *testing.T) {
	a := Key("anthropic", "model", "hello", "sys", 0, 100)
	b := Key("anthropic", "model", "hello   \n\t", "sys", 0, 100)
	assert.Equal(t, a, b, "trailing whitespace in the prompt must not affect the cache key")

	c := Key("anthropic", "model", "  hello", "sys", 0, 100)
	assert.NotEqual(t, a, c, "leading whitespace must still participate in the key")
}

func TestKey_DiffersOnAnyField(t *testing.T) {
	base := Key("anthropic", "model-a", "prompt", "sys", 0.3, 1000)
	assert.NotEqual(t, base, Key("openai", "model-a", "prompt", "sys", 0.3, 1000))
	assert.NotEqual(t, base, Key("anthropic", "model-b", "prompt", "sys", 0.3, 1000))
	assert.NotEqual(t, base, Key("anthropic", "model-a", "other prompt", "sys", 0.3, 1000))
	assert.NotEqual(t, base, Key("anthropic", "model-a", "prompt", "other sys", 0.3, 1000))
	assert.NotEqual(t, base, Key("anthropic", "model-a", "prompt", "sys", 0.4, 1000))
	assert.NotEqual(t, base, Key("anthropic", "model-a", "prompt", "sys", 0.3, 2000))
}

func TestKey_NoConcatenationCollision(t *testing.T) {
	a := Key("ab", "c", "", "", 0, 0)
	b := Key("a", "bc", "", "", 0, 0)
	assert.NotEqual(t, a, b, "field separator must prevent adjacent-field concatenation collisions")
}

func TestFSBackend_RoundTrip(t *testing.T) {
	backend := NewFSBackend(t.TempDir())
	ctx := context.Background()

	entry := &models.CacheEntry{
		Key:       "deadbeef",
		Provider:  "anthropic",
		Model:     "claude-sonnet-4",
		Value:     []byte(`{"content":"hi"}`),
		CreatedAt: time.Now().Truncate(time.Second),
		Hits:      0,
	}
	require.NoError(t, backend.PutCacheEntry(ctx, entry))

	got, err := backend.GetCacheEntry(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, entry.Provider, got.Provider)
	assert.Equal(t, entry.Model, got.Model)
	assert.Equal(t, entry.Value, got.Value)
}

func TestFSBackend_MissingKeyReturnsErrNotFound(t *testing.T) {
	backend := NewFSBackend(t.TempDir())
	_, err := backend.GetCacheEntry(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFSBackend_PreservesTTL(t *testing.T) {
	backend := NewFSBackend(t.TempDir())
	ttl := 30 * time.Minute
	entry := &models.CacheEntry{Key: "k1", TTL: &ttl, CreatedAt: time.Now()}
	require.NoError(t, backend.PutCacheEntry(context.Background(), entry))

	got, err := backend.GetCacheEntry(context.Background(), "k1")
	require.NoError(t, err)
	require.NotNil(t, got.TTL)
	assert.Equal(t, ttl, *got.TTL)
}
