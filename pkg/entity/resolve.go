package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/signals"
)

// mention pairs a Tier 0 entity candidate with its canonical type.
type mention struct {
	entityType models.EntityType
	raw        string
}

// mentionsOf flattens a Tier 0 Entities bundle into typed mentions. Currency
// amounts have no canonical entity type — the registry is scoped to
// person/place/org/phone/email (spec §4.2) — and are left unresolved.
func mentionsOf(ents signals.Entities) []mention {
	var out []mention
	for _, v := range ents.People {
		out = append(out, mention{models.EntityPerson, v})
	}
	for _, v := range ents.Phones {
		out = append(out, mention{models.EntityPhone, v})
	}
	for _, v := range ents.Emails {
		out = append(out, mention{models.EntityEmail, v})
	}
	for _, v := range ents.Locations {
		out = append(out, mention{models.EntityPlace, v})
	}
	for _, v := range ents.Organisations {
		out = append(out, mention{models.EntityOrg, v})
	}
	return out
}

// ResolveDocumentEntities canonicalises every Tier 0 entity candidate found
// in a document through registry.Resolve, then records a "co_mentioned"
// edge between every pair resolved from that document via
// graph.RecordRelationship — the graph's co-occurrence weights accumulate
// entirely from entities sharing a source document (spec §4.2). Candidates
// that hit the blocklist resolve to nil and are silently skipped, since a
// blocked mention is expected rather than exceptional.
func ResolveDocumentEntities(ctx context.Context, registry *Registry, graph *Graph, at time.Time, ents signals.Entities) ([]*models.Entity, error) {
	if registry == nil || graph == nil {
		return nil, nil
	}

	mentions := mentionsOf(ents)
	resolved := make([]*models.Entity, 0, len(mentions))
	for _, m := range mentions {
		e, err := registry.Resolve(ctx, m.entityType, m.raw, m.raw, models.ConfidenceMedium)
		if err != nil {
			return nil, fmt.Errorf("resolving entity %q: %w", m.raw, err)
		}
		if e == nil {
			continue
		}
		resolved = append(resolved, e)
	}

	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			if resolved[i].ID == resolved[j].ID {
				continue
			}
			if err := graph.RecordRelationship(ctx, resolved[i].ID, resolved[j].ID, "co_mentioned", at); err != nil {
				return nil, fmt.Errorf("recording co-mention %s<->%s: %w", resolved[i].ID, resolved[j].ID, err)
			}
		}
	}
	return resolved, nil
}
