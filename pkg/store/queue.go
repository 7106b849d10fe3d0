package store

import (
	"context"
	"fmt"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Enqueue inserts a new queue item, immediately visible.
func (s *PostgresStore) Enqueue(ctx context.Context, item *models.QueueItem) error {
	payload, err := marshalMap(item.Payload)
	if err != nil {
		return err
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	if item.NextVisibleAt.IsZero() {
		item.NextVisibleAt = item.EnqueuedAt
	}
	if item.Status == "" {
		item.Status = models.QueueStatusQueued
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO queue (id, case_id, kind, payload, attempts, enqueued_at, next_visible_at, status, lease_token, leased_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, item.ID, item.CaseID, item.Kind, payload, item.Attempts, item.EnqueuedAt, item.NextVisibleAt, item.Status, item.LeaseToken, item.LeasedUntil)
	if err != nil {
		return fmt.Errorf("enqueueing item %s: %w", item.ID, err)
	}
	return nil
}

// ClaimNext atomically claims the oldest visible item of the given kind (or
// any kind if nil) using SELECT ... FOR UPDATE SKIP LOCKED, the same pattern
// tarsy's worker uses to claim sessions, adapted to a lease (token + expiry)
// rather than a simple status flip, per spec §4.9's lease-based queue.
func (s *PostgresStore) ClaimNext(ctx context.Context, kind *models.QueueKind, leaseMS int64) (*models.QueueItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var row pgx.Row
	if kind != nil {
		row = tx.QueryRow(ctx, `
			SELECT id, case_id, kind, payload, attempts, enqueued_at, next_visible_at, status, lease_token, leased_until
			FROM queue
			WHERE kind = $1 AND status = 'queued' AND next_visible_at <= now()
			ORDER BY enqueued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, *kind)
	} else {
		row = tx.QueryRow(ctx, `
			SELECT id, case_id, kind, payload, attempts, enqueued_at, next_visible_at, status, lease_token, leased_until
			FROM queue
			WHERE status = 'queued' AND next_visible_at <= now()
			ORDER BY enqueued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`)
	}

	item, err := scanQueueItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoItemAvailable
		}
		return nil, fmt.Errorf("querying next queue item: %w", err)
	}

	token := uuid.New().String()
	leasedUntil := time.Now().Add(time.Duration(leaseMS) * time.Millisecond)
	_, err = tx.Exec(ctx, `
		UPDATE queue SET status = 'leased', lease_token = $1, leased_until = $2, attempts = attempts + 1
		WHERE id = $3`, token, leasedUntil, item.ID)
	if err != nil {
		return nil, fmt.Errorf("claiming queue item %s: %w", item.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing claim of %s: %w", item.ID, err)
	}

	item.Status = models.QueueStatusLeased
	item.LeaseToken = &token
	item.LeasedUntil = &leasedUntil
	item.Attempts++
	return item, nil
}

func scanQueueItem(row pgx.Row) (*models.QueueItem, error) {
	var item models.QueueItem
	var payload []byte
	if err := row.Scan(&item.ID, &item.CaseID, &item.Kind, &payload, &item.Attempts, &item.EnqueuedAt,
		&item.NextVisibleAt, &item.Status, &item.LeaseToken, &item.LeasedUntil); err != nil {
		return nil, err
	}
	m, err := unmarshalMap(payload)
	if err != nil {
		return nil, err
	}
	item.Payload = m
	return &item, nil
}

// CompleteItem marks an item done, but only if the caller's lease token still
// matches what's persisted — the at-most-once completion guarantee from
// spec §4.9.
func (s *PostgresStore) CompleteItem(ctx context.Context, itemID, leaseToken string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queue SET status = 'done', lease_token = NULL, leased_until = NULL
		WHERE id = $1 AND lease_token = $2`, itemID, leaseToken)
	if err != nil {
		return fmt.Errorf("completing queue item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseExpired
	}
	return nil
}

// FailItem requeues the item with exponential backoff (attempts already
// incremented at claim time), or marks it permanently failed once
// maxAttempts attempts have been made.
func (s *PostgresStore) FailItem(ctx context.Context, itemID, leaseToken string, maxAttempts int, backoff time.Duration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning fail-item transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var attempts int
	var token *string
	if err := tx.QueryRow(ctx, `SELECT attempts, lease_token FROM queue WHERE id = $1 FOR UPDATE`, itemID).Scan(&attempts, &token); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("locking queue item %s: %w", itemID, err)
	}
	if token == nil || *token != leaseToken {
		return ErrLeaseExpired
	}

	if attempts >= maxAttempts {
		_, err = tx.Exec(ctx, `UPDATE queue SET status = 'failed', lease_token = NULL, leased_until = NULL WHERE id = $1`, itemID)
	} else {
		backoffFor := backoff * time.Duration(1<<uint(attempts-1))
		nextVisible := time.Now().Add(backoffFor)
		_, err = tx.Exec(ctx, `
			UPDATE queue SET status = 'queued', lease_token = NULL, leased_until = NULL, next_visible_at = $1
			WHERE id = $2`, nextVisible, itemID)
	}
	if err != nil {
		return fmt.Errorf("failing queue item %s: %w", itemID, err)
	}
	return tx.Commit(ctx)
}

// ReclaimExpiredLeases flips leased items whose lease has expired back to
// queued, immediately visible, so a crashed worker's work resumes elsewhere.
func (s *PostgresStore) ReclaimExpiredLeases(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queue SET status = 'queued', lease_token = NULL, leased_until = NULL, next_visible_at = now()
		WHERE status = 'leased' AND leased_until < now()`)
	if err != nil {
		return 0, fmt.Errorf("reclaiming expired leases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
