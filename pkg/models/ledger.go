package models

import "time"

// CacheEntry is a content-addressed memoized LLM response.
type CacheEntry struct {
	Key       string
	Provider  string
	Model     string
	Value     []byte // serialised LLMResponse
	CreatedAt time.Time
	TTL       *time.Duration
	Hits      int
}

// Expired reports whether the entry's TTL has elapsed relative to now.
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.TTL == nil {
		return false
	}
	return now.After(e.CreatedAt.Add(*e.TTL))
}

// CostLedgerRow is one append-only row per LLM call.
type CostLedgerRow struct {
	ID           string
	CaseID       *string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostCents    float64
	Purpose      string
	Cached       bool
	At           time.Time
}
