package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// Graph answers relationship-aware queries over the entity registry:
// neighbourhood, co-occurrence ranking, and sentiment-over-time, joined
// against the insights each entity's mentions came from (spec §4.2).
type Graph struct {
	store store.Store
}

// NewGraph builds a Graph over the given store.
func NewGraph(s store.Store) *Graph {
	return &Graph{store: s}
}

// RecordRelationship upserts a directed edge, failing with ErrEntityNotFound
// if either endpoint doesn't exist in the registry.
func (g *Graph) RecordRelationship(ctx context.Context, fromID, toID, relType string, at time.Time) error {
	for _, id := range []string{fromID, toID} {
		if _, err := g.entityByID(ctx, id); err != nil {
			return err
		}
	}
	if err := g.store.RelationshipUpsert(ctx, fromID, toID, relType, at); err != nil {
		return fmt.Errorf("recording relationship %s->%s: %w", fromID, toID, err)
	}
	return nil
}

func (g *Graph) entityByID(ctx context.Context, id string) (*models.Entity, error) {
	all, err := g.store.ListEntities(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("relationship endpoint %s: %w", id, ErrEntityNotFound)
}

// Neighbourhood returns entityID's N strongest neighbours, by edge weight.
func (g *Graph) Neighbourhood(ctx context.Context, entityID string, n int) ([]*models.Relationship, error) {
	rels, err := g.store.Neighbours(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading neighbourhood of %s: %w", entityID, err)
	}
	if n > 0 && len(rels) > n {
		rels = rels[:n]
	}
	return rels, nil
}

// CoOccurrencePair is one (entity, weight) result from a co-occurrence query.
type CoOccurrencePair struct {
	EntityID string
	Weight   int
}

// TopCoOccurring returns entityID's top-K co-occurring entities, aggregating
// both edge directions since "appears together" is inherently symmetric.
func (g *Graph) TopCoOccurring(ctx context.Context, entityID string, k int) ([]CoOccurrencePair, error) {
	rels, err := g.store.Neighbours(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading co-occurrence for %s: %w", entityID, err)
	}

	weights := map[string]int{}
	for _, r := range rels {
		other := r.ToID
		if other == entityID {
			other = r.FromID
		}
		weights[other] += r.Weight
	}

	out := make([]CoOccurrencePair, 0, len(weights))
	for id, w := range weights {
		out = append(out, CoOccurrencePair{EntityID: id, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].EntityID < out[j].EntityID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// SentimentPoint is one dated emotional-tag snapshot for an entity.
type SentimentPoint struct {
	At   time.Time
	Tags []string
}

// SentimentOverTime returns, in chronological order, the emotional tags of
// every active insight in the case whose summary contains entityDisplayName
// (case-insensitive). Insights don't carry entity ids, and the match is made
// on the summary text only; the insights' source documents and their Tier 0
// entity mentions are not consulted.
func (g *Graph) SentimentOverTime(ctx context.Context, caseID string, entityDisplayName string) ([]SentimentPoint, error) {
	insights, err := g.store.ActiveInsightsFor(ctx, caseID, nil)
	if err != nil {
		return nil, fmt.Errorf("loading insights for sentiment query: %w", err)
	}

	var points []SentimentPoint
	for _, ins := range insights {
		if !mentionsEntity(ins, entityDisplayName) {
			continue
		}
		at := ins.CreatedAt
		if ins.LatestSourceDate != nil {
			at = *ins.LatestSourceDate
		}
		points = append(points, SentimentPoint{At: at, Tags: ins.EmotionalTags.Slice()})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	return points, nil
}

func mentionsEntity(ins *models.Insight, name string) bool {
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(ins.Summary), strings.ToLower(name))
}
