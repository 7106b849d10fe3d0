package store

import (
	"context"
	"fmt"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/jackc/pgx/v5"
)

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// GetCacheEntry fetches a cached LLM response by its content-addressed key.
func (s *PostgresStore) GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error) {
	var e models.CacheEntry
	var ttlSeconds *int64
	err := s.pool.QueryRow(ctx, `
		SELECT cache_key, provider, model, value, created_at, ttl_seconds, hits
		FROM cache_entries WHERE cache_key = $1`, key).
		Scan(&e.Key, &e.Provider, &e.Model, &e.Value, &e.CreatedAt, &ttlSeconds, &e.Hits)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading cache entry %s: %w", key, err)
	}
	if ttlSeconds != nil {
		d := secondsToDuration(*ttlSeconds)
		e.TTL = &d
	}
	return &e, nil
}

// PutCacheEntry inserts a cache row; for an existing key only the hit count
// is updated, the stored value and TTL are kept. Hit-count bumping on read
// is the caller's responsibility (pkg/cache increments and re-saves).
func (s *PostgresStore) PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	var ttlSeconds *int64
	if entry.TTL != nil {
		s := int64(entry.TTL.Seconds())
		ttlSeconds = &s
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cache_entries (cache_key, provider, model, value, created_at, ttl_seconds, hits)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (cache_key) DO UPDATE SET
			hits = EXCLUDED.hits
	`, entry.Key, entry.Provider, entry.Model, entry.Value, entry.CreatedAt, ttlSeconds, entry.Hits)
	if err != nil {
		return fmt.Errorf("saving cache entry %s: %w", entry.Key, err)
	}
	return nil
}

// AppendCostLedger appends an immutable cost-accounting row. Cached hits are
// recorded with cost_cents=0 so reporting can distinguish hits from calls
// (spec §4.4).
func (s *PostgresStore) AppendCostLedger(ctx context.Context, row *models.CostLedgerRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cost_ledger (id, provider, model, input_tokens, output_tokens, cost_cents, purpose, cached, at, case_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, row.ID, row.Provider, row.Model, row.InputTokens, row.OutputTokens, row.CostCents, row.Purpose, row.Cached, row.At, row.CaseID)
	if err != nil {
		return fmt.Errorf("appending cost ledger row %s: %w", row.ID, err)
	}
	return nil
}

// CostTotal sums cost_cents across the ledger, optionally scoped to one case
// via the cost_ledger.case_id column (NULL when a call isn't case-scoped,
// e.g. a standalone validation probe).
func (s *PostgresStore) CostTotal(ctx context.Context, caseID *string) (float64, error) {
	var total float64
	var err error
	if caseID != nil {
		err = s.pool.QueryRow(ctx, `SELECT coalesce(sum(cost_cents),0) FROM cost_ledger WHERE case_id = $1`, *caseID).Scan(&total)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT coalesce(sum(cost_cents),0) FROM cost_ledger`).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("summing cost ledger: %w", err)
	}
	return total, nil
}
