package store

import (
	"context"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/jackc/pgx/v5"
)

// SaveInsight upserts an insight row.
func (s *PostgresStore) SaveInsight(ctx context.Context, i *models.Insight) error {
	return s.saveInsightTx(ctx, s.pool, i)
}

func (s *PostgresStore) saveInsightTx(ctx context.Context, q queryExecer, i *models.Insight) error {
	themes, err := marshalSet(i.Themes)
	if err != nil {
		return err
	}
	tags, err := marshalSet(i.EmotionalTags)
	if err != nil {
		return err
	}
	patterns, err := marshalSet(i.Patterns)
	if err != nil {
		return err
	}
	sources, err := marshalSet(i.SourceIDs)
	if err != nil {
		return err
	}
	excerpts, err := marshalStrings(i.Excerpts)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO insights (id, case_id, run_id, summary, themes, emotional_tags, patterns, significance, confidence,
			insight_type, source_ids, excerpts, status, pass_count, merged_into_id, earliest_source_date, latest_source_date,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			themes = EXCLUDED.themes,
			emotional_tags = EXCLUDED.emotional_tags,
			patterns = EXCLUDED.patterns,
			significance = EXCLUDED.significance,
			confidence = EXCLUDED.confidence,
			insight_type = EXCLUDED.insight_type,
			source_ids = EXCLUDED.source_ids,
			excerpts = EXCLUDED.excerpts,
			status = EXCLUDED.status,
			pass_count = EXCLUDED.pass_count,
			merged_into_id = EXCLUDED.merged_into_id,
			earliest_source_date = EXCLUDED.earliest_source_date,
			latest_source_date = EXCLUDED.latest_source_date,
			updated_at = EXCLUDED.updated_at
	`, i.ID, i.CaseID, i.RunID, i.Summary, themes, tags, patterns, i.Significance, i.Confidence,
		i.InsightType, sources, excerpts, i.Status, i.PassCount, i.MergedIntoID, i.EarliestSourceDate, i.LatestSourceDate,
		i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving insight %s: %w", i.ID, err)
	}
	return nil
}

func scanInsight(row pgx.Row) (*models.Insight, error) {
	var i models.Insight
	var themes, tags, patterns, sources, excerpts []byte
	if err := row.Scan(&i.ID, &i.CaseID, &i.RunID, &i.Summary, &themes, &tags, &patterns, &i.Significance, &i.Confidence,
		&i.InsightType, &sources, &excerpts, &i.Status, &i.PassCount, &i.MergedIntoID, &i.EarliestSourceDate, &i.LatestSourceDate,
		&i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if i.Themes, err = unmarshalSet(themes); err != nil {
		return nil, err
	}
	if i.EmotionalTags, err = unmarshalSet(tags); err != nil {
		return nil, err
	}
	if i.Patterns, err = unmarshalSet(patterns); err != nil {
		return nil, err
	}
	if i.SourceIDs, err = unmarshalSet(sources); err != nil {
		return nil, err
	}
	if i.Excerpts, err = unmarshalStrings(excerpts); err != nil {
		return nil, err
	}
	return &i, nil
}

const insightColumns = `id, case_id, run_id, summary, themes, emotional_tags, patterns, significance, confidence,
	insight_type, source_ids, excerpts, status, pass_count, merged_into_id, earliest_source_date, latest_source_date,
	created_at, updated_at`

// GetInsight fetches one insight by id.
func (s *PostgresStore) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = $1`, id)
	i, err := scanInsight(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading insight %s: %w", id, err)
	}
	return i, nil
}

// ActiveInsightsFor returns non-rejected, non-merged insights for a case,
// optionally narrowed to one extraction run.
func (s *PostgresStore) ActiveInsightsFor(ctx context.Context, caseID string, runID *string) ([]*models.Insight, error) {
	var rows pgx.Rows
	var err error
	if runID != nil {
		rows, err = s.pool.Query(ctx, `SELECT `+insightColumns+` FROM insights
			WHERE case_id = $1 AND run_id = $2 AND status NOT IN ('rejected','merged')
			ORDER BY created_at ASC`, caseID, *runID)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+insightColumns+` FROM insights
			WHERE case_id = $1 AND status NOT IN ('rejected','merged')
			ORDER BY created_at ASC`, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading active insights for case %s: %w", caseID, err)
	}
	defer rows.Close()
	return collectInsights(rows)
}

// SimilarInsightCandidates is a coarse theme-overlap pre-filter: it returns
// active insights sharing at least one theme with the supplied set, most
// overlap first. Callers (pkg/extract) apply the full weighted similarity
// score over this narrowed candidate list.
func (s *PostgresStore) SimilarInsightCandidates(ctx context.Context, caseID string, themes []string, limit int) ([]*models.Insight, error) {
	if len(themes) == 0 {
		return nil, nil
	}
	themesJSON, err := marshalStrings(themes)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+insightColumns+`,
			(SELECT count(*) FROM jsonb_array_elements_text(themes) t WHERE t IN (SELECT jsonb_array_elements_text($2::jsonb))) AS overlap
		FROM insights
		WHERE case_id = $1 AND status NOT IN ('rejected','merged')
			AND themes ?| $3
		ORDER BY overlap DESC
		LIMIT $4`, caseID, themesJSON, themes, limit)
	if err != nil {
		return nil, fmt.Errorf("loading similar insight candidates for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []*models.Insight
	for rows.Next() {
		var i models.Insight
		var th, tags, patterns, sources, excerpts []byte
		var overlap int
		if err := rows.Scan(&i.ID, &i.CaseID, &i.RunID, &i.Summary, &th, &tags, &patterns, &i.Significance, &i.Confidence,
			&i.InsightType, &sources, &excerpts, &i.Status, &i.PassCount, &i.MergedIntoID, &i.EarliestSourceDate, &i.LatestSourceDate,
			&i.CreatedAt, &i.UpdatedAt, &overlap); err != nil {
			return nil, err
		}
		if i.Themes, err = unmarshalSet(th); err != nil {
			return nil, err
		}
		if i.EmotionalTags, err = unmarshalSet(tags); err != nil {
			return nil, err
		}
		if i.Patterns, err = unmarshalSet(patterns); err != nil {
			return nil, err
		}
		if i.SourceIDs, err = unmarshalSet(sources); err != nil {
			return nil, err
		}
		if i.Excerpts, err = unmarshalStrings(excerpts); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

func collectInsights(rows pgx.Rows) ([]*models.Insight, error) {
	var out []*models.Insight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// MergeInsight marks loserID merged into winnerID, unions the loser's
// source ids and excerpts onto the winner, and persists both rows inside one
// transaction (spec §4.10 "merge-an-insight" is a required transactional
// write).
func (s *PostgresStore) MergeInsight(ctx context.Context, winnerID, loserID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	winner, err := scanInsight(tx.QueryRow(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = $1 FOR UPDATE`, winnerID))
	if err != nil {
		return fmt.Errorf("loading merge winner %s: %w", winnerID, err)
	}
	loser, err := scanInsight(tx.QueryRow(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = $1 FOR UPDATE`, loserID))
	if err != nil {
		return fmt.Errorf("loading merge loser %s: %w", loserID, err)
	}

	winner.SourceIDs = winner.SourceIDs.Union(loser.SourceIDs)
	winner.Themes = winner.Themes.Union(loser.Themes)
	winner.EmotionalTags = winner.EmotionalTags.Union(loser.EmotionalTags)
	winner.Patterns = winner.Patterns.Union(loser.Patterns)
	winner.Excerpts = append(winner.Excerpts, loser.Excerpts...)
	if loser.EarliestSourceDate != nil && (winner.EarliestSourceDate == nil || loser.EarliestSourceDate.Before(*winner.EarliestSourceDate)) {
		winner.EarliestSourceDate = loser.EarliestSourceDate
	}
	if loser.LatestSourceDate != nil && (winner.LatestSourceDate == nil || loser.LatestSourceDate.After(*winner.LatestSourceDate)) {
		winner.LatestSourceDate = loser.LatestSourceDate
	}

	loser.Status = models.InsightStatusMerged
	loser.MergedIntoID = &winnerID

	if err := s.saveInsightTx(ctx, tx, winner); err != nil {
		return err
	}
	if err := s.saveInsightTx(ctx, tx, loser); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
