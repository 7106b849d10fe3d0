// Package store defines the persistence boundary the rest of the pipeline
// depends on, and a transactional PostgreSQL implementation of it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/brentyJ/recog/pkg/models"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// ErrNoItemAvailable is returned by ClaimNext when the queue has nothing
// currently visible to claim.
var ErrNoItemAvailable = errors.New("store: no queue item available")

// ErrLeaseExpired is returned by CompleteItem/FailItem when the caller's
// lease token no longer matches the persisted one (someone else reclaimed it).
var ErrLeaseExpired = errors.New("store: lease expired or superseded")

// ErrStaleTransition is returned by AdvanceCase when the requested "from"
// state no longer matches the case's persisted current state.
var ErrStaleTransition = errors.New("store: case state changed concurrently")

// Store is the single persistence interface the core pipeline depends on.
// The concrete implementation is a transactional PostgreSQL adapter, but the
// interface is defined here so every other package can depend on it without
// importing pgx.
type Store interface {
	// Documents
	SaveDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, caseID string) ([]*models.Document, error)

	// Insights
	SaveInsight(ctx context.Context, i *models.Insight) error
	GetInsight(ctx context.Context, id string) (*models.Insight, error)
	// ActiveInsightsFor returns insights for a case (and optionally a single
	// run) excluding rejected/merged statuses (spec §4.10).
	ActiveInsightsFor(ctx context.Context, caseID string, runID *string) ([]*models.Insight, error)
	// SimilarInsightCandidates returns active insights in the case sharing at
	// least one theme with the given set, ordered by theme-overlap size desc,
	// capped at limit. It is a coarse pre-filter; fine scoring happens in
	// pkg/extract.
	SimilarInsightCandidates(ctx context.Context, caseID string, themes []string, limit int) ([]*models.Insight, error)
	// MergeInsight atomically marks `loserID` merged into `winnerID`, unions
	// source ids/excerpts onto the winner, and persists both rows in one
	// transaction.
	MergeInsight(ctx context.Context, winnerID, loserID string) error

	// Patterns & syntheses
	SavePattern(ctx context.Context, p *models.Pattern) error
	ListPatterns(ctx context.Context, caseID string, runID *string) ([]*models.Pattern, error)
	SaveSynthesis(ctx context.Context, s *models.Synthesis) error
	ListSyntheses(ctx context.Context, caseID string) ([]*models.Synthesis, error)

	// Entities & relationships
	SaveEntity(ctx context.Context, e *models.Entity) error
	FindEntity(ctx context.Context, entityType models.EntityType, normalisedValue string) (*models.Entity, error)
	ListEntities(ctx context.Context, entityType *models.EntityType) ([]*models.Entity, error)
	IsBlocklisted(ctx context.Context, entityType models.EntityType, normalisedValue string) (bool, error)
	AddToBlocklist(ctx context.Context, entry *models.BlocklistEntry) error
	// RelationshipUpsert concurrently-safely increments the weight of the
	// (fromID, toID, relType) edge, creating it with weight 1 if absent.
	RelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error
	Neighbours(ctx context.Context, entityID string) ([]*models.Relationship, error)
	// RewriteRelationshipEntity repoints every edge referencing oldID onto
	// newID (spec §4.2 "all relationship edges referencing B are rewritten to
	// reference A"), merging weights where the rewrite would collide with an
	// existing edge.
	RewriteRelationshipEntity(ctx context.Context, oldID, newID string) error

	// InsightRelationshipUpsert records a directed edge between two insights
	// (e.g. "contradicts" found by the critique engine), incrementing weight
	// if the edge already exists.
	InsightRelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error

	// Cases & timeline
	SaveCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, id string) (*models.Case, error)
	ListCases(ctx context.Context) ([]*models.Case, error)
	// AdvanceCase transactionally checks the case is currently in `from`,
	// moves it to `to`, and appends a TimelineEvent — all inside one
	// transaction (spec §4.10 "advance-state+journal").
	AdvanceCase(ctx context.Context, caseID string, from, to models.CaseState, cause string) error
	Timeline(ctx context.Context, caseID string) ([]*models.TimelineEvent, error)

	// Queue
	Enqueue(ctx context.Context, item *models.QueueItem) error
	// ClaimNext atomically claims the oldest visible item of the given kind
	// (or any kind if nil), setting status=leased with a fresh lease token
	// valid for leaseMS milliseconds.
	ClaimNext(ctx context.Context, kind *models.QueueKind, leaseMS int64) (*models.QueueItem, error)
	// CompleteItem marks an item done, but only if leaseToken still matches
	// (CAS semantics per spec §4.9 "at-most-once completion").
	CompleteItem(ctx context.Context, itemID, leaseToken string) error
	// FailItem requeues with exponential backoff until maxAttempts attempts
	// have been made, at which point it is marked permanently failed.
	FailItem(ctx context.Context, itemID, leaseToken string, maxAttempts int, backoff time.Duration) error
	ReclaimExpiredLeases(ctx context.Context) (int, error)

	// Processing state (resumability)
	SaveProcessingState(ctx context.Context, s *models.ProcessingState) error
	GetProcessingState(ctx context.Context, runID string) (*models.ProcessingState, error)

	// Cache & cost
	GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error
	AppendCostLedger(ctx context.Context, row *models.CostLedgerRow) error
	CostTotal(ctx context.Context, caseID *string) (float64, error)

	Close()
}
