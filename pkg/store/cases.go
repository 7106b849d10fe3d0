package store

import (
	"context"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/jackc/pgx/v5"
)

// SaveCase upserts a case row.
func (s *PostgresStore) SaveCase(ctx context.Context, c *models.Case) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cases (id, title, description, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, c.ID, c.Title, c.Description, c.State, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving case %s: %w", c.ID, err)
	}
	return nil
}

func scanCase(row pgx.Row) (*models.Case, error) {
	var c models.Case
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.State, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCase fetches one case by id.
func (s *PostgresStore) GetCase(ctx context.Context, id string) (*models.Case, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, title, description, state, created_at, updated_at FROM cases WHERE id = $1`, id)
	c, err := scanCase(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading case %s: %w", id, err)
	}
	return c, nil
}

// ListCases returns every case, newest first.
func (s *PostgresStore) ListCases(ctx context.Context) ([]*models.Case, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, description, state, created_at, updated_at FROM cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AdvanceCase transactionally checks the case's current state matches from,
// moves it to to, and journals the transition — the store's required
// "advance-state+journal" atomic write (spec §4.10).
func (s *PostgresStore) AdvanceCase(ctx context.Context, caseID string, from, to models.CaseState, cause string) error {
	if !models.IsLegalTransition(from, to) {
		return fmt.Errorf("advancing case %s: %s -> %s is not a legal transition", caseID, from, to)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning advance-case transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current models.CaseState
	if err := tx.QueryRow(ctx, `SELECT state FROM cases WHERE id = $1 FOR UPDATE`, caseID).Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("locking case %s: %w", caseID, err)
	}
	if current != from {
		return ErrStaleTransition
	}

	if _, err := tx.Exec(ctx, `UPDATE cases SET state = $1, updated_at = now() WHERE id = $2`, to, caseID); err != nil {
		return fmt.Errorf("updating case %s state: %w", caseID, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO timeline_events (id, case_id, from_state, to_state, cause, at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, models.NewID(), caseID, from, to, cause); err != nil {
		return fmt.Errorf("journaling transition for case %s: %w", caseID, err)
	}
	return tx.Commit(ctx)
}

// Timeline returns every recorded transition for a case, oldest first.
func (s *PostgresStore) Timeline(ctx context.Context, caseID string) ([]*models.TimelineEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, from_state, to_state, cause, at FROM timeline_events
		WHERE case_id = $1 ORDER BY at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading timeline for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []*models.TimelineEvent
	for rows.Next() {
		var e models.TimelineEvent
		if err := rows.Scan(&e.ID, &e.CaseID, &e.From, &e.To, &e.Cause, &e.At); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// SaveProcessingState upserts a run's resumability snapshot.
func (s *PostgresStore) SaveProcessingState(ctx context.Context, st *models.ProcessingState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_state (run_id, case_id, documents_total, documents_done, insights_created, patterns_created, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (run_id) DO UPDATE SET
			documents_total = EXCLUDED.documents_total, documents_done = EXCLUDED.documents_done,
			insights_created = EXCLUDED.insights_created, patterns_created = EXCLUDED.patterns_created,
			updated_at = EXCLUDED.updated_at
	`, st.RunID, st.CaseID, st.DocumentsTotal, st.DocumentsDone, st.InsightsCreated, st.PatternsCreated, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving processing state %s: %w", st.RunID, err)
	}
	return nil
}

// GetProcessingState fetches a run's resumability snapshot.
func (s *PostgresStore) GetProcessingState(ctx context.Context, runID string) (*models.ProcessingState, error) {
	var st models.ProcessingState
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, case_id, documents_total, documents_done, insights_created, patterns_created, updated_at
		FROM processing_state WHERE run_id = $1`, runID).
		Scan(&st.RunID, &st.CaseID, &st.DocumentsTotal, &st.DocumentsDone, &st.InsightsCreated, &st.PatternsCreated, &st.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading processing state %s: %w", runID, err)
	}
	return &st, nil
}
