// Package query provides struct-based fielded lookups over the store — the
// supplemented "queryable cases" surface from the governing specification's
// overview, deliberately without a query language (a stated non-goal).
package query

import (
	"context"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// Service answers fielded lookups by delegating to the store and filtering
// the rows it returns.
type Service struct {
	store store.Store
}

// New builds a query Service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// InsightFilter narrows FindInsights. Zero values mean "no filter" on that
// field. IncludeRejected and IncludeMerged have no effect: FindInsights reads
// only active insights, which never include rejected or merged ones.
type InsightFilter struct {
	CaseID          string
	RunID           string
	MinSignificance float64
	MinConfidence   float64
	Theme           string
	Type            models.InsightType
	IncludeRejected bool
	IncludeMerged   bool
}

// FindInsights returns the case's active insights narrowed by filter.
func (s *Service) FindInsights(ctx context.Context, f InsightFilter) ([]*models.Insight, error) {
	if f.CaseID == "" {
		return nil, fmt.Errorf("query: CaseID is required")
	}
	var runID *string
	if f.RunID != "" {
		runID = &f.RunID
	}
	all, err := s.store.ActiveInsightsFor(ctx, f.CaseID, runID)
	if err != nil {
		return nil, err
	}

	out := all[:0:0]
	for _, ins := range all {
		if !f.IncludeRejected && ins.Status == models.InsightStatusRejected {
			continue
		}
		if !f.IncludeMerged && ins.Status == models.InsightStatusMerged {
			continue
		}
		if f.MinSignificance > 0 && ins.Significance < f.MinSignificance {
			continue
		}
		if f.MinConfidence > 0 && ins.Confidence < f.MinConfidence {
			continue
		}
		if f.Theme != "" && !ins.Themes.Contains(f.Theme) {
			continue
		}
		if f.Type != "" && ins.InsightType != f.Type {
			continue
		}
		out = append(out, ins)
	}
	return out, nil
}

// PatternFilter narrows FindPatterns.
type PatternFilter struct {
	CaseID      string
	RunID       string
	MinStrength float64
	Type        models.PatternType
}

// FindPatterns returns patterns for a case narrowed by filter.
func (s *Service) FindPatterns(ctx context.Context, f PatternFilter) ([]*models.Pattern, error) {
	if f.CaseID == "" {
		return nil, fmt.Errorf("query: CaseID is required")
	}
	var runID *string
	if f.RunID != "" {
		runID = &f.RunID
	}
	all, err := s.store.ListPatterns(ctx, f.CaseID, runID)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, p := range all {
		if f.MinStrength > 0 && p.Strength < f.MinStrength {
			continue
		}
		if f.Type != "" && p.PatternType != f.Type {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FindSyntheses returns every synthesis for a case.
func (s *Service) FindSyntheses(ctx context.Context, caseID string) ([]*models.Synthesis, error) {
	return s.store.ListSyntheses(ctx, caseID)
}

// EntityFilter narrows FindEntities.
type EntityFilter struct {
	Type models.EntityType // empty means any type
}

// FindEntities returns canonical entities narrowed by type.
func (s *Service) FindEntities(ctx context.Context, f EntityFilter) ([]*models.Entity, error) {
	var t *models.EntityType
	if f.Type != "" {
		t = &f.Type
	}
	return s.store.ListEntities(ctx, t)
}

// CaseSummary bundles a case with its timeline and tier counters, the
// user-visible shape spec.md §7 requires.
type CaseSummary struct {
	Case      *models.Case
	Timeline  []*models.TimelineEvent
	Insights  int
	Patterns  int
	Syntheses int
}

// CaseOverview assembles the summary shape for one case.
func (s *Service) CaseOverview(ctx context.Context, caseID string) (*CaseSummary, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.store.Timeline(ctx, caseID)
	if err != nil {
		return nil, err
	}
	insights, err := s.store.ActiveInsightsFor(ctx, caseID, nil)
	if err != nil {
		return nil, err
	}
	patterns, err := s.store.ListPatterns(ctx, caseID, nil)
	if err != nil {
		return nil, err
	}
	syntheses, err := s.store.ListSyntheses(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return &CaseSummary{
		Case:      c,
		Timeline:  timeline,
		Insights:  len(insights),
		Patterns:  len(patterns),
		Syntheses: len(syntheses),
	}, nil
}
