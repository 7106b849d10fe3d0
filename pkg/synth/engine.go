package synth

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

// Engine runs Tier 2 clustering and pattern generation over a case's
// active insights.
type Engine struct {
	store    store.Store
	router   *llm.Router
	generate generateFn
	provider string
	model    string
	cfg      config.Config
}

// New builds a Tier 2 Engine.
func New(s store.Store, router *llm.Router, generate generateFn, provider, model string, cfg config.Config) *Engine {
	return &Engine{store: s, router: router, generate: generate, provider: provider, model: model, cfg: cfg}
}

type patternDraft struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PatternType string         `json:"pattern_type"`
	Strength    float64        `json:"strength"`
	Metadata    map[string]any `json:"metadata"`
}

const patternSystemPrompt = `Given a cluster of related insights, name the underlying pattern. Respond with ONLY JSON: {"name":"","description":"","pattern_type":"cognitive|emotional|relational|transitional|other","strength":0.0,"metadata":{}}`

// RunOnce executes one clustering + pattern-generation pass for a run,
// returning the patterns it created or updated and the fraction of insights
// that newly joined a cluster (used by callers to apply the
// correlation_yield_threshold early-termination rule across passes).
func (e *Engine) RunOnce(ctx context.Context, caseID, runID string, strategy Strategy) ([]*models.Pattern, float64, error) {
	insights, err := e.store.ActiveInsightsFor(ctx, caseID, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("loading active insights: %w", err)
	}
	if len(insights) == 0 {
		return nil, 0, nil
	}

	clusters := Run(insights, strategy, e.cfg.CorrelationMinCluster)

	clustered := 0
	for _, c := range clusters {
		clustered += len(c.Insights)
	}
	yield := float64(clustered) / float64(len(insights))

	var patterns []*models.Pattern
	for _, cluster := range clusters {
		p, err := e.generatePattern(ctx, caseID, runID, cluster)
		if err != nil {
			return patterns, yield, fmt.Errorf("generating pattern: %w", err)
		}
		if err := e.store.SavePattern(ctx, p); err != nil {
			return patterns, yield, fmt.Errorf("saving pattern %s: %w", p.ID, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, yield, nil
}

// RunPasses iterates RunOnce up to cfg.CorrelationMaxPasses times, stopping
// early once the fraction of newly clustered insights drops below
// cfg.CorrelationYieldThreshold.
func (e *Engine) RunPasses(ctx context.Context, caseID, runID string, strategy Strategy) ([]*models.Pattern, error) {
	var all []*models.Pattern
	for pass := 0; pass < e.cfg.CorrelationMaxPasses; pass++ {
		patterns, yield, err := e.RunOnce(ctx, caseID, runID, strategy)
		if err != nil {
			return all, err
		}
		all = append(all, patterns...)
		if yield < e.cfg.CorrelationYieldThreshold {
			break
		}
	}
	return all, nil
}

func (e *Engine) generatePattern(ctx context.Context, caseID, runID string, cluster Cluster) (*models.Pattern, error) {
	var sb strings.Builder
	insightIDs := models.NewStringSet()
	for _, ins := range cluster.Insights {
		insightIDs[ins.ID] = struct{}{}
		sb.WriteString(fmt.Sprintf("- %s (themes: %s)\n", ins.Summary, strings.Join(ins.Themes.Slice(), ", ")))
		for _, ex := range ins.Excerpts {
			sb.WriteString(fmt.Sprintf("  excerpt: %q\n", ex))
		}
	}

	resp, err := e.generate(ctx, e.router, e.provider, e.model, llm.Request{
		Prompt:      sb.String(),
		System:      patternSystemPrompt,
		Temperature: 0.3,
		MaxTokens:   500,
	}, &caseID, "correlate")
	if err != nil {
		return nil, err
	}

	var draft patternDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &draft); err != nil {
		// Fall back to a deterministic name built from dominant themes rather
		// than failing the whole pass over one malformed response.
		draft = patternDraft{
			Name:        fmt.Sprintf("Pattern: %s", strings.Join(cluster.DominantThemes, ", ")),
			Description: "auto-generated fallback; model response did not parse",
			PatternType: string(models.PatternOther),
			Strength:    cluster.CohesionScore,
		}
	}

	patternType := models.PatternType(draft.PatternType)
	switch patternType {
	case models.PatternCognitive, models.PatternEmotional, models.PatternRelational, models.PatternTransitional, models.PatternOther:
	default:
		patternType = models.PatternOther
	}

	now := time.Now()
	return &models.Pattern{
		ID:          models.NewID(),
		RunID:       runID,
		CaseID:      caseID,
		Name:        draft.Name,
		Summary:     draft.Description,
		Description: draft.Description,
		PatternType: patternType,
		InsightIDs:  insightIDs,
		Strength:    draft.Strength,
		Metadata:    draft.Metadata,
		CreatedAt:   now,
	}, nil
}
