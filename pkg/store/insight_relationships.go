package store

import (
	"context"
	"fmt"
	"time"
)

// InsightRelationshipUpsert increments the weight of a directed edge between
// two insights (used by the critique engine's contradiction check), or
// creates it at weight 1. Kept in a table separate from entity relationships
// since insight ids and entity ids are different id spaces with different
// foreign keys.
func (s *PostgresStore) InsightRelationshipUpsert(ctx context.Context, fromID, toID, relType string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO insight_relationships (from_id, to_id, relation_type, weight, first_seen, last_seen)
		VALUES ($1,$2,$3,1,$4,$4)
		ON CONFLICT (from_id, to_id, relation_type) DO UPDATE SET
			weight = insight_relationships.weight + 1,
			last_seen = EXCLUDED.last_seen
	`, fromID, toID, relType, at)
	if err != nil {
		return fmt.Errorf("upserting insight relationship (%s->%s,%s): %w", fromID, toID, relType, err)
	}
	return nil
}
