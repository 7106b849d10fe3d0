package store

import (
	"context"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to RECOG_TEST_DATABASE_URL and applies migrations,
// skipping the test entirely when the variable is unset — these tests hit a
// real PostgreSQL instance and have no in-memory substitute, since the
// behaviour under test (row locking, transactional commit/rollback) does not
// exist outside the database.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("RECOG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RECOG_TEST_DATABASE_URL not set; skipping integration test")
	}

	cfg, err := configFromURL(dsn)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// configFromURL parses a postgres:// URL into Config, since
// RECOG_TEST_DATABASE_URL is conventionally supplied in DSN-URL form by CI
// rather than as individually-named RECOG_DB_* variables.
func configFromURL(dsn string) (Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Config{}, err
	}
	password, _ := u.User.Password()
	port := 5432
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}
	return Config{
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		Database:        strings.TrimPrefix(u.Path, "/"),
		SSLMode:         sslMode,
		MaxConns:        5,
		MinConns:        1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 5 * time.Minute,
	}, nil
}

// withTestCase inserts a fresh case in CaseUploading and returns its ID.
func withTestCase(t *testing.T, s *PostgresStore) string {
	t.Helper()
	c := &models.Case{
		ID:        models.NewID(),
		Title:     "integration test case",
		State:     models.CaseUploading,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.SaveCase(context.Background(), c))
	return c.ID
}

func TestIntegration_AdvanceCase_CommitsStateAndJournal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)

	require.NoError(t, s.AdvanceCase(ctx, caseID, models.CaseUploading, models.CaseScanning, "ingested"))

	got, err := s.GetCase(ctx, caseID)
	require.NoError(t, err)
	require.Equal(t, models.CaseScanning, got.State)

	events, err := s.Timeline(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.CaseUploading, events[0].From)
	require.Equal(t, models.CaseScanning, events[0].To)
}

func TestIntegration_AdvanceCase_RejectsStaleFromState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)

	require.NoError(t, s.AdvanceCase(ctx, caseID, models.CaseUploading, models.CaseScanning, "ingested"))

	err := s.AdvanceCase(ctx, caseID, models.CaseUploading, models.CaseScanning, "ingested again")
	require.ErrorIs(t, err, ErrStaleTransition, "case already left uploading; the second caller sees the race")
}

func TestIntegration_AdvanceCase_RejectsIllegalTransition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)

	err := s.AdvanceCase(ctx, caseID, models.CaseUploading, models.CaseComplete, "skip ahead")
	require.Error(t, err, "uploading -> complete is not a legal edge")
}

func TestIntegration_MergeInsight_UnionsOntoWinnerAndMarksLoserMerged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)
	now := time.Now()

	winner := &models.Insight{
		ID: models.NewID(), CaseID: caseID, RunID: "run-1", Summary: "winner",
		Themes: models.NewStringSet("grief"), SourceIDs: models.NewStringSet("doc-1"),
		Status: models.InsightStatusRaw, PassCount: 1, Confidence: 0.8, Significance: 0.7,
		CreatedAt: now, UpdatedAt: now,
	}
	loser := &models.Insight{
		ID: models.NewID(), CaseID: caseID, RunID: "run-1", Summary: "loser",
		Themes: models.NewStringSet("abandonment"), SourceIDs: models.NewStringSet("doc-2"),
		Status: models.InsightStatusRaw, PassCount: 1, Confidence: 0.6, Significance: 0.5,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.SaveInsight(ctx, winner))
	require.NoError(t, s.SaveInsight(ctx, loser))

	require.NoError(t, s.MergeInsight(ctx, winner.ID, loser.ID))

	gotWinner, err := s.GetInsight(ctx, winner.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"doc-1", "doc-2"}, gotWinner.SourceIDs.Slice())
	require.ElementsMatch(t, []string{"abandonment", "grief"}, gotWinner.Themes.Slice())

	gotLoser, err := s.GetInsight(ctx, loser.ID)
	require.NoError(t, err)
	require.Equal(t, models.InsightStatusMerged, gotLoser.Status)
	require.NotNil(t, gotLoser.MergedIntoID)
	require.Equal(t, winner.ID, *gotLoser.MergedIntoID)
}

func TestIntegration_ClaimNext_IsExclusiveUnderConcurrentClaimers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)

	item := &models.QueueItem{ID: models.NewID(), CaseID: &caseID, Kind: models.QueueExtract, Payload: map[string]any{"document_id": "doc-1"}}
	require.NoError(t, s.Enqueue(ctx, item))

	type claimResult struct {
		item *models.QueueItem
		err  error
	}
	results := make(chan claimResult, 2)
	for i := 0; i < 2; i++ {
		go func() {
			got, err := s.ClaimNext(ctx, nil, 30_000)
			results <- claimResult{got, err}
		}()
	}

	first := <-results
	second := <-results

	claimed := []claimResult{first, second}
	successes := 0
	for _, r := range claimed {
		if r.err == nil {
			successes++
			require.Equal(t, item.ID, r.item.ID)
		} else {
			require.ErrorIs(t, r.err, ErrNoItemAvailable)
		}
	}
	require.Equal(t, 1, successes, "exactly one of the two concurrent claimers wins the only queued item")
}

func TestIntegration_ClaimNext_CompleteItemRequiresMatchingLease(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	caseID := withTestCase(t, s)

	item := &models.QueueItem{ID: models.NewID(), CaseID: &caseID, Kind: models.QueueExtract, Payload: map[string]any{"document_id": "doc-1"}}
	require.NoError(t, s.Enqueue(ctx, item))

	claimed, err := s.ClaimNext(ctx, nil, 30_000)
	require.NoError(t, err)
	require.NotNil(t, claimed.LeaseToken)

	err = s.CompleteItem(ctx, claimed.ID, "not-the-real-token")
	require.ErrorIs(t, err, ErrLeaseExpired)

	require.NoError(t, s.CompleteItem(ctx, claimed.ID, *claimed.LeaseToken))
}
