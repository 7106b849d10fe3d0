package pipeline

import (
	"context"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// fakeStore is a minimal in-memory store.Store satisfying only what
// advanceCase's tests exercise; every other method panics if called, so a
// test that reaches one fails loudly rather than silently passing on a nil.
type fakeStore struct {
	cases map[string]*models.Case
}

func newFakeStore(c *models.Case) *fakeStore {
	return &fakeStore{cases: map[string]*models.Case{c.ID: c}}
}

func (f *fakeStore) AdvanceCase(ctx context.Context, caseID string, from, to models.CaseState, cause string) error {
	c, ok := f.cases[caseID]
	if !ok {
		return store.ErrNotFound
	}
	if c.State != from {
		return store.ErrStaleTransition
	}
	c.State = to
	return nil
}

func (f *fakeStore) GetCase(ctx context.Context, id string) (*models.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) SaveDocument(ctx context.Context, d *models.Document) error { panic("not implemented") }
func (f *fakeStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	panic("not implemented")
}
func (f *fakeStore) ListDocuments(ctx context.Context, caseID string) ([]*models.Document, error) {
	panic("not implemented")
}
func (f *fakeStore) SaveInsight(ctx context.Context, i *models.Insight) error { panic("not implemented") }
func (f *fakeStore) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	panic("not implemented")
}
func (f *fakeStore) ActiveInsightsFor(ctx context.Context, caseID string, runID *string) ([]*models.Insight, error) {
	panic("not implemented")
}
func (f *fakeStore) SimilarInsightCandidates(ctx context.Context, caseID string, themes []string, limit int) ([]*models.Insight, error) {
	panic("not implemented")
}
func (f *fakeStore) MergeInsight(ctx context.Context, winnerID, loserID string) error {
	panic("not implemented")
}
func (f *fakeStore) SavePattern(ctx context.Context, p *models.Pattern) error { panic("not implemented") }
func (f *fakeStore) ListPatterns(ctx context.Context, caseID string, runID *string) ([]*models.Pattern, error) {
	panic("not implemented")
}
func (f *fakeStore) SaveSynthesis(ctx context.Context, s *models.Synthesis) error {
	panic("not implemented")
}
func (f *fakeStore) ListSyntheses(ctx context.Context, caseID string) ([]*models.Synthesis, error) {
	panic("not implemented")
}
func (f *fakeStore) SaveEntity(ctx context.Context, e *models.Entity) error { panic("not implemented") }
func (f *fakeStore) FindEntity(ctx context.Context, entityType models.EntityType, normalisedValue string) (*models.Entity, error) {
	panic("not implemented")
}
func (f *fakeStore) ListEntities(ctx context.Context, entityType *models.EntityType) ([]*models.Entity, error) {
	panic("not implemented")
}
func (f *fakeStore) IsBlocklisted(ctx context.Context, entityType models.EntityType, normalisedValue string) (bool, error) {
	panic("not implemented")
}
func (f *fakeStore) AddToBlocklist(ctx context.Context, entry *models.BlocklistEntry) error {
	panic("not implemented")
}
func (f *fakeStore) RelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error {
	panic("not implemented")
}
func (f *fakeStore) Neighbours(ctx context.Context, entityID string) ([]*models.Relationship, error) {
	panic("not implemented")
}
func (f *fakeStore) RewriteRelationshipEntity(ctx context.Context, oldID, newID string) error {
	panic("not implemented")
}
func (f *fakeStore) InsightRelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error {
	panic("not implemented")
}
func (f *fakeStore) SaveCase(ctx context.Context, c *models.Case) error { panic("not implemented") }
func (f *fakeStore) ListCases(ctx context.Context) ([]*models.Case, error) {
	panic("not implemented")
}
func (f *fakeStore) Timeline(ctx context.Context, caseID string) ([]*models.TimelineEvent, error) {
	panic("not implemented")
}
func (f *fakeStore) Enqueue(ctx context.Context, item *models.QueueItem) error { panic("not implemented") }
func (f *fakeStore) ClaimNext(ctx context.Context, kind *models.QueueKind, leaseMS int64) (*models.QueueItem, error) {
	panic("not implemented")
}
func (f *fakeStore) CompleteItem(ctx context.Context, itemID, leaseToken string) error {
	panic("not implemented")
}
func (f *fakeStore) FailItem(ctx context.Context, itemID, leaseToken string, maxAttempts int, backoff time.Duration) error {
	panic("not implemented")
}
func (f *fakeStore) ReclaimExpiredLeases(ctx context.Context) (int, error) { panic("not implemented") }
func (f *fakeStore) SaveProcessingState(ctx context.Context, s *models.ProcessingState) error {
	panic("not implemented")
}
func (f *fakeStore) GetProcessingState(ctx context.Context, runID string) (*models.ProcessingState, error) {
	panic("not implemented")
}
func (f *fakeStore) GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error) {
	panic("not implemented")
}
func (f *fakeStore) PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	panic("not implemented")
}
func (f *fakeStore) AppendCostLedger(ctx context.Context, row *models.CostLedgerRow) error {
	panic("not implemented")
}
func (f *fakeStore) CostTotal(ctx context.Context, caseID *string) (float64, error) {
	panic("not implemented")
}
func (f *fakeStore) Close() {}

var _ store.Store = (*fakeStore)(nil)
