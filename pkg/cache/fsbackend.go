package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// FSBackend stores cache entries as one file per key, sharded into
// subdirectories by the first two hex characters of the key (spec §4.4),
// written atomically via write-to-temp-then-rename.
type FSBackend struct {
	dir string
}

// NewFSBackend prepares (but does not yet create) a filesystem-backed cache
// rooted at dir.
func NewFSBackend(dir string) *FSBackend {
	return &FSBackend{dir: dir}
}

type fsEntry struct {
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Value     []byte     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	TTL       *int64     `json:"ttl_seconds,omitempty"`
	Hits      int        `json:"hits"`
}

func (f *FSBackend) path(key string) string {
	shard := key
	if len(shard) > 2 {
		shard = key[:2]
	}
	return filepath.Join(f.dir, shard, key+".json")
}

// GetCacheEntry reads and decodes one entry, returning store.ErrNotFound
// when absent so callers can treat both backends identically.
func (f *FSBackend) GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error) {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	var e fsEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	entry := &models.CacheEntry{
		Key: key, Provider: e.Provider, Model: e.Model, Value: e.Value, CreatedAt: e.CreatedAt, Hits: e.Hits,
	}
	if e.TTL != nil {
		d := time.Duration(*e.TTL) * time.Second
		entry.TTL = &d
	}
	return entry, nil
}

// PutCacheEntry writes to a temp file in the shard directory and renames it
// into place, so a crash mid-write never leaves a partially-written entry
// visible.
func (f *FSBackend) PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	dir := filepath.Dir(f.path(entry.Key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache shard dir %s: %w", dir, err)
	}

	var ttlSeconds *int64
	if entry.TTL != nil {
		s := int64(entry.TTL.Seconds())
		ttlSeconds = &s
	}
	raw, err := json.Marshal(fsEntry{
		Provider: entry.Provider, Model: entry.Model, Value: entry.Value,
		CreatedAt: entry.CreatedAt, TTL: ttlSeconds, Hits: entry.Hits,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", entry.Key, err)
	}

	tmp, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(entry.Key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming cache entry %s into place: %w", entry.Key, err)
	}
	return nil
}
