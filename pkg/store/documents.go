package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/signals"
	"github.com/jackc/pgx/v5"
)

// SaveDocument upserts a document, including its computed signals if present.
func (s *PostgresStore) SaveDocument(ctx context.Context, d *models.Document) error {
	meta, err := marshalMap(d.Metadata)
	if err != nil {
		return err
	}
	var sig []byte
	if d.Signals != nil {
		sig, err = json.Marshal(d.Signals)
		if err != nil {
			return fmt.Errorf("marshalling signals: %w", err)
		}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, case_id, content, source_type, source_ref, metadata, signals, created_at, processed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source_type = EXCLUDED.source_type,
			source_ref = EXCLUDED.source_ref,
			metadata = EXCLUDED.metadata,
			signals = EXCLUDED.signals,
			processed_at = EXCLUDED.processed_at
	`, d.ID, d.CaseID, d.Content, d.SourceType, d.SourceRef, meta, sig, d.CreatedAt, d.ProcessedAt)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", d.ID, err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	var meta, sig []byte
	if err := row.Scan(&d.ID, &d.CaseID, &d.Content, &d.SourceType, &d.SourceRef, &meta, &sig, &d.CreatedAt, &d.ProcessedAt); err != nil {
		return nil, err
	}
	m, err := unmarshalMap(meta)
	if err != nil {
		return nil, err
	}
	d.Metadata = m
	if len(sig) > 0 {
		var parsed signals.Signals
		if err := json.Unmarshal(sig, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshalling signals: %w", err)
		}
		d.Signals = &parsed
	}
	return &d, nil
}

// GetDocument fetches one document by id.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, case_id, content, source_type, source_ref, metadata, signals, created_at, processed_at
		FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading document %s: %w", id, err)
	}
	return d, nil
}

// ListDocuments returns all documents for a case, oldest first.
func (s *PostgresStore) ListDocuments(ctx context.Context, caseID string) ([]*models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, case_id, content, source_type, source_ref, metadata, signals, created_at, processed_at
		FROM documents WHERE case_id = $1 ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing documents for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
