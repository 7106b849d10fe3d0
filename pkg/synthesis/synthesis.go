// Package synthesis implements C8, Tier 3: grouping patterns that share a
// pattern_type or overlapping insight_ids, and prompting for a higher-order
// narrative synthesis over each group.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brentyJ/recog/pkg/config"
	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// generateFn matches cache.Cache.Generate's signature.
type generateFn func(ctx context.Context, router *llm.Router, provider, model string, req llm.Request, caseID *string, purpose string) (llm.Response, error)

// Engine runs Tier 3 over a case's patterns.
type Engine struct {
	store    store.Store
	router   *llm.Router
	generate generateFn
	provider string
	model    string
	cfg      config.Config
}

// New builds a Tier 3 Engine.
func New(s store.Store, router *llm.Router, generate generateFn, provider, model string, cfg config.Config) *Engine {
	return &Engine{store: s, router: router, generate: generate, provider: provider, model: model, cfg: cfg}
}

// Ready reports whether the gate conditions for Tier 3 are met: enough
// patterns, with mean strength clearing the significance threshold.
func (e *Engine) Ready(patterns []*models.Pattern) bool {
	if len(patterns) < e.cfg.SynthesisMinPatterns {
		return false
	}
	var total float64
	for _, p := range patterns {
		total += p.Strength
	}
	return total/float64(len(patterns)) >= e.cfg.SynthesisSignificanceThreshold
}

// Run groups ready patterns and generates one Synthesis per group.
func (e *Engine) Run(ctx context.Context, caseID string) ([]*models.Synthesis, error) {
	patterns, err := e.store.ListPatterns(ctx, caseID, nil)
	if err != nil {
		return nil, fmt.Errorf("loading patterns: %w", err)
	}
	if !e.Ready(patterns) {
		return nil, nil
	}

	groups := groupPatterns(patterns)

	var out []*models.Synthesis
	for _, group := range groups {
		syn, err := e.generateSynthesis(ctx, caseID, group)
		if err != nil {
			return out, fmt.Errorf("generating synthesis: %w", err)
		}
		if err := e.store.SaveSynthesis(ctx, syn); err != nil {
			return out, fmt.Errorf("saving synthesis %s: %w", syn.ID, err)
		}
		out = append(out, syn)
	}
	return out, nil
}

// groupPatterns connects patterns that share a pattern_type or have
// overlapping insight_ids, via the same union-find approach pkg/synth uses
// for insight clustering.
func groupPatterns(patterns []*models.Pattern) [][]*models.Pattern {
	parent := make(map[string]string, len(patterns))
	byID := make(map[string]*models.Pattern, len(patterns))
	for _, p := range patterns {
		parent[p.ID] = p.ID
		byID[p.ID] = p
	}
	var find func(string) string
	find = func(id string) string {
		root := id
		for parent[root] != root {
			root = parent[root]
		}
		for id != root {
			id, parent[id] = parent[id], root
		}
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			if patterns[i].PatternType == patterns[j].PatternType || overlaps(patterns[i].InsightIDs, patterns[j].InsightIDs) {
				union(patterns[i].ID, patterns[j].ID)
			}
		}
	}

	groups := make(map[string][]*models.Pattern)
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], byID[id])
	}
	out := make([][]*models.Pattern, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}

func overlaps(a, b models.StringSet) bool {
	for v := range a {
		if b.Contains(v) {
			return true
		}
	}
	return false
}

type synthesisDraft struct {
	Summary       string         `json:"summary"`
	SynthesisType string         `json:"synthesis_type"`
	Significance  float64        `json:"significance"`
	Confidence    float64        `json:"confidence"`
	Metadata      map[string]any `json:"metadata"`
}

const synthesisSystemPrompt = `Given these related patterns, write a higher-order narrative synthesis connecting them. Respond with ONLY JSON: {"summary":"","synthesis_type":"","significance":0.0,"confidence":0.0,"metadata":{}}`

func (e *Engine) generateSynthesis(ctx context.Context, caseID string, group []*models.Pattern) (*models.Synthesis, error) {
	var sb strings.Builder
	patternIDs := models.NewStringSet()
	for _, p := range group {
		patternIDs[p.ID] = struct{}{}
		sb.WriteString(fmt.Sprintf("- %s (%s, strength %.2f): %s\n", p.Name, p.PatternType, p.Strength, p.Description))
	}

	resp, err := e.generate(ctx, e.router, e.provider, e.model, llm.Request{
		Prompt:      sb.String(),
		System:      synthesisSystemPrompt,
		Temperature: 0.4,
		MaxTokens:   700,
	}, &caseID, "synthesize")
	if err != nil {
		return nil, err
	}

	var draft synthesisDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &draft); err != nil {
		draft = synthesisDraft{
			Summary:       fmt.Sprintf("Synthesis across %d patterns (model response did not parse)", len(group)),
			SynthesisType: "other",
			Significance:  meanStrength(group),
			Confidence:    0.3,
		}
	}

	return &models.Synthesis{
		ID:            models.NewID(),
		CaseID:        caseID,
		Summary:       draft.Summary,
		SynthesisType: draft.SynthesisType,
		PatternIDs:    patternIDs,
		Significance:  draft.Significance,
		Confidence:    draft.Confidence,
		Metadata:      draft.Metadata,
		CreatedAt:     time.Now(),
	}, nil
}

func meanStrength(patterns []*models.Pattern) float64 {
	if len(patterns) == 0 {
		return 0
	}
	var total float64
	for _, p := range patterns {
		total += p.Strength
	}
	return total / float64(len(patterns))
}
