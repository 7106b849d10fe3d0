package store

import (
	"context"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/jackc/pgx/v5"
)

// SavePattern upserts a Tier 2 pattern row.
func (s *PostgresStore) SavePattern(ctx context.Context, p *models.Pattern) error {
	insightIDs, err := marshalSet(p.InsightIDs)
	if err != nil {
		return err
	}
	meta, err := marshalMap(p.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO patterns (id, run_id, case_id, name, summary, description, pattern_type, insight_ids, strength, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, summary = EXCLUDED.summary, description = EXCLUDED.description,
			pattern_type = EXCLUDED.pattern_type, insight_ids = EXCLUDED.insight_ids,
			strength = EXCLUDED.strength, metadata = EXCLUDED.metadata
	`, p.ID, p.RunID, p.CaseID, p.Name, p.Summary, p.Description, p.PatternType, insightIDs, p.Strength, meta, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving pattern %s: %w", p.ID, err)
	}
	return nil
}

// ListPatterns returns patterns for a case, optionally narrowed to one run.
func (s *PostgresStore) ListPatterns(ctx context.Context, caseID string, runID *string) ([]*models.Pattern, error) {
	var rows pgx.Rows
	var err error
	const cols = `id, run_id, case_id, name, summary, description, pattern_type, insight_ids, strength, metadata, created_at`
	if runID != nil {
		rows, err = s.pool.Query(ctx, `SELECT `+cols+` FROM patterns WHERE case_id = $1 AND run_id = $2 ORDER BY created_at ASC`, caseID, *runID)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+cols+` FROM patterns WHERE case_id = $1 ORDER BY created_at ASC`, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing patterns for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []*models.Pattern
	for rows.Next() {
		var p models.Pattern
		var insightIDs, meta []byte
		if err := rows.Scan(&p.ID, &p.RunID, &p.CaseID, &p.Name, &p.Summary, &p.Description, &p.PatternType, &insightIDs, &p.Strength, &meta, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.InsightIDs, err = unmarshalSet(insightIDs); err != nil {
			return nil, err
		}
		if p.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// SaveSynthesis upserts a Tier 3 synthesis row.
func (s *PostgresStore) SaveSynthesis(ctx context.Context, syn *models.Synthesis) error {
	patternIDs, err := marshalSet(syn.PatternIDs)
	if err != nil {
		return err
	}
	meta, err := marshalMap(syn.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO syntheses (id, case_id, summary, synthesis_type, pattern_ids, significance, confidence, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary, synthesis_type = EXCLUDED.synthesis_type, pattern_ids = EXCLUDED.pattern_ids,
			significance = EXCLUDED.significance, confidence = EXCLUDED.confidence, metadata = EXCLUDED.metadata
	`, syn.ID, syn.CaseID, syn.Summary, syn.SynthesisType, patternIDs, syn.Significance, syn.Confidence, meta, syn.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving synthesis %s: %w", syn.ID, err)
	}
	return nil
}

// ListSyntheses returns every synthesis for a case.
func (s *PostgresStore) ListSyntheses(ctx context.Context, caseID string) ([]*models.Synthesis, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, summary, synthesis_type, pattern_ids, significance, confidence, metadata, created_at
		FROM syntheses WHERE case_id = $1 ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing syntheses for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []*models.Synthesis
	for rows.Next() {
		var syn models.Synthesis
		var patternIDs, meta []byte
		if err := rows.Scan(&syn.ID, &syn.CaseID, &syn.Summary, &syn.SynthesisType, &patternIDs, &syn.Significance, &syn.Confidence, &meta, &syn.CreatedAt); err != nil {
			return nil, err
		}
		if syn.PatternIDs, err = unmarshalSet(patternIDs); err != nil {
			return nil, err
		}
		if syn.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, err
		}
		out = append(out, &syn)
	}
	return out, rows.Err()
}
