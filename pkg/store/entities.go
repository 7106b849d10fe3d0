package store

import (
	"context"
	"fmt"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/jackc/pgx/v5"
)

// SaveEntity upserts a canonical entity row.
func (s *PostgresStore) SaveEntity(ctx context.Context, e *models.Entity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO entity_registry (id, entity_type, raw_value, normalised_value, display_name, merged_into_id, confidence_band, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			merged_into_id = EXCLUDED.merged_into_id,
			confidence_band = EXCLUDED.confidence_band,
			updated_at = EXCLUDED.updated_at
	`, e.ID, e.EntityType, e.RawValue, e.NormalisedValue, e.DisplayName, e.MergedIntoID, e.ConfidenceBand, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving entity %s: %w", e.ID, err)
	}
	return nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var e models.Entity
	if err := row.Scan(&e.ID, &e.EntityType, &e.RawValue, &e.NormalisedValue, &e.DisplayName, &e.MergedIntoID, &e.ConfidenceBand, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEntity looks up the canonical entity by its unique (type, normalised
// value) key, the pre-insert check used to avoid duplicate identities.
func (s *PostgresStore) FindEntity(ctx context.Context, entityType models.EntityType, normalisedValue string) (*models.Entity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, entity_type, raw_value, normalised_value, display_name, merged_into_id, confidence_band, created_at, updated_at
		FROM entity_registry WHERE entity_type = $1 AND normalised_value = $2`, entityType, normalisedValue)
	e, err := scanEntity(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding entity (%s,%s): %w", entityType, normalisedValue, err)
	}
	return e, nil
}

// ListEntities returns every entity, optionally filtered to one type.
func (s *PostgresStore) ListEntities(ctx context.Context, entityType *models.EntityType) ([]*models.Entity, error) {
	var rows pgx.Rows
	var err error
	if entityType != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, entity_type, raw_value, normalised_value, display_name, merged_into_id, confidence_band, created_at, updated_at
			FROM entity_registry WHERE entity_type = $1 ORDER BY created_at ASC`, *entityType)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, entity_type, raw_value, normalised_value, display_name, merged_into_id, confidence_band, created_at, updated_at
			FROM entity_registry ORDER BY created_at ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsBlocklisted reports whether (entityType, normalisedValue) has previously
// been rejected, so the registry can skip re-proposing it to the LLM.
func (s *PostgresStore) IsBlocklisted(ctx context.Context, entityType models.EntityType, normalisedValue string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM entity_blacklist WHERE entity_type = $1 AND normalised_value = $2`,
		entityType, normalisedValue).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blocklist (%s,%s): %w", entityType, normalisedValue, err)
	}
	return count > 0, nil
}

// AddToBlocklist records or bumps a rejected-entity-candidate entry.
func (s *PostgresStore) AddToBlocklist(ctx context.Context, entry *models.BlocklistEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO entity_blacklist (entity_type, normalised_value, rejection_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (entity_type, normalised_value) DO UPDATE SET
			rejection_count = entity_blacklist.rejection_count + 1,
			updated_at = EXCLUDED.updated_at
	`, entry.EntityType, entry.NormalisedValue, entry.RejectionCount, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("adding blocklist entry (%s,%s): %w", entry.EntityType, entry.NormalisedValue, err)
	}
	return nil
}

// RelationshipUpsert increments the weight of a directed edge, or creates it
// at weight 1. The single statement is concurrency-safe without an explicit
// transaction (spec §5 "append-only, lock-free safe" extends to this upsert
// via ON CONFLICT DO UPDATE, which Postgres serialises per row).
func (s *PostgresStore) RelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relationships (from_id, to_id, relation_type, weight, first_seen, last_seen)
		VALUES ($1,$2,$3,1,$4,$4)
		ON CONFLICT (from_id, to_id, relation_type) DO UPDATE SET
			weight = relationships.weight + 1,
			last_seen = EXCLUDED.last_seen
	`, fromID, toID, relType, at)
	if err != nil {
		return fmt.Errorf("upserting relationship (%s->%s,%s): %w", fromID, toID, relType, err)
	}
	return nil
}

// RewriteRelationshipEntity repoints edges from oldID to newID. Edges that
// would collide with an existing (newID, other, type) edge are merged by
// summing weights and keeping the later last_seen, rather than violating the
// (from_id, to_id, relation_type) primary key.
func (s *PostgresStore) RewriteRelationshipEntity(ctx context.Context, oldID, newID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning relationship rewrite transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, col := range []string{"from_id", "to_id"} {
		other := "to_id"
		if col == "to_id" {
			other = "from_id"
		}
		// Merge colliding edges first: add old's weight onto new's matching row.
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			UPDATE relationships r1 SET weight = r1.weight + r2.weight,
				last_seen = GREATEST(r1.last_seen, r2.last_seen)
			FROM relationships r2
			WHERE r1.%s = $1 AND r2.%s = $2
				AND r1.%s = r2.%s AND r1.relation_type = r2.relation_type
		`, col, col, other, other), newID, oldID); err != nil {
			return fmt.Errorf("merging colliding relationship edges: %w", err)
		}
		// Delete the now-redundant old-side rows that were just merged in.
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			DELETE FROM relationships r2 USING relationships r1
			WHERE r2.%s = $2 AND r1.%s = $1
				AND r1.%s = r2.%s AND r1.relation_type = r2.relation_type
		`, col, col, other, other), newID, oldID); err != nil {
			return fmt.Errorf("deleting merged relationship edges: %w", err)
		}
		// Repoint the remaining (non-colliding) old-side rows onto newID.
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE relationships SET %s = $1 WHERE %s = $2`, col, col), newID, oldID); err != nil {
			return fmt.Errorf("repointing relationship edges: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Neighbours returns every relationship touching entityID, in either
// direction.
func (s *PostgresStore) Neighbours(ctx context.Context, entityID string) ([]*models.Relationship, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT from_id, to_id, relation_type, weight, first_seen, last_seen
		FROM relationships WHERE from_id = $1 OR to_id = $1
		ORDER BY weight DESC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading neighbours of %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []*models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.FromID, &r.ToID, &r.RelationType, &r.Weight, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
