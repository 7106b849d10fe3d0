package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// ErrEntityNotFound is raised by relationship writes that reference an
// unknown entity (spec §4.2 "unknown entity on relationship write fails
// with EntityNotFound").
var ErrEntityNotFound = errors.New("entity: not found")

// Registry canonicalises candidate entity mentions into the entity_registry
// table, enforcing the blocklist and normalisation rules.
type Registry struct {
	store store.Store
}

// New builds a Registry over the given store.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// normalisedValue applies the type-appropriate normalisation function.
func normalisedValue(entityType models.EntityType, raw string) string {
	switch entityType {
	case models.EntityPhone:
		return NormalisePhone(raw)
	case models.EntityEmail:
		return NormaliseEmail(raw)
	default:
		return Normalise(raw)
	}
}

// Resolve looks up or creates the canonical entity for a raw mention. A
// blocklist hit returns (nil, nil) — "rejected, no row created" — rather
// than an error, since a blocked mention is an expected, not exceptional,
// outcome.
func (r *Registry) Resolve(ctx context.Context, entityType models.EntityType, raw, displayName string, band models.ConfidenceBand) (*models.Entity, error) {
	norm := normalisedValue(entityType, raw)

	blocked, err := r.store.IsBlocklisted(ctx, entityType, norm)
	if err != nil {
		return nil, fmt.Errorf("checking blocklist: %w", err)
	}
	if blocked {
		return nil, nil
	}

	existing, err := r.store.FindEntity(ctx, entityType, norm)
	if err == nil {
		return r.deref(ctx, existing)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up entity: %w", err)
	}

	now := time.Now()
	e := &models.Entity{
		ID:              models.NewID(),
		EntityType:      entityType,
		RawValue:        raw,
		NormalisedValue: norm,
		DisplayName:     displayName,
		ConfidenceBand:  band,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.SaveEntity(ctx, e); err != nil {
		// A concurrent insert of the same (type, normalised_value) races here;
		// treat it as a merge-update rather than an error (spec §4.2 "duplicate
		// insert -> treated as merge-update, not error").
		if existing, findErr := r.store.FindEntity(ctx, entityType, norm); findErr == nil {
			return r.deref(ctx, existing)
		}
		return nil, fmt.Errorf("saving entity: %w", err)
	}
	return e, nil
}

// deref follows merged_into_id until it reaches a non-merged entity,
// guarding against cycles by bounding the walk.
func (r *Registry) deref(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	seen := map[string]bool{}
	for e.MergedIntoID != nil {
		if seen[e.ID] {
			return nil, fmt.Errorf("entity %s: merge cycle detected", e.ID)
		}
		seen[e.ID] = true
		next, err := r.getByID(ctx, *e.MergedIntoID)
		if err != nil {
			return nil, err
		}
		e = next
	}
	return e, nil
}

func (r *Registry) getByID(ctx context.Context, id string) (*models.Entity, error) {
	all, err := r.store.ListEntities(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("entity %s: %w", id, ErrEntityNotFound)
}

// Reject records a candidate as blocklisted, bumping its rejection counter.
func (r *Registry) Reject(ctx context.Context, entityType models.EntityType, raw string) error {
	now := time.Now()
	return r.store.AddToBlocklist(ctx, &models.BlocklistEntry{
		EntityType:      entityType,
		NormalisedValue: normalisedValue(entityType, raw),
		RejectionCount:  1,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// Merge sets loser.merged_into_id = winner.id and rewrites every
// relationship edge referencing the loser onto the winner (spec §4.2).
func (r *Registry) Merge(ctx context.Context, winnerID, loserID string) error {
	loser, err := r.getByID(ctx, loserID)
	if err != nil {
		return err
	}
	if err := r.store.RewriteRelationshipEntity(ctx, loserID, winnerID); err != nil {
		return fmt.Errorf("rewriting relationship edges: %w", err)
	}
	loser.MergedIntoID = &winnerID
	loser.UpdatedAt = time.Now()
	return r.store.SaveEntity(ctx, loser)
}
