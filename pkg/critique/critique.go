// Package critique implements C6: a post-extraction pass over insights that
// checks citation support, recalibrates significance, flags contradictions
// against existing insights, and rejects insights that fall below a
// confidence floor after the above — plus the one-shot reflexion resubmission
// for rejected insights.
package critique

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/brentyJ/recog/pkg/config"
	"github.com/brentyJ/recog/pkg/entity"
	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// groundingFloor is the confidence floor below which an insight is rejected
// after calibration and contradiction checks have run.
const groundingFloor = 0.25

// calibrationBand is the allowed deviation between claimed and heuristic
// significance before a recompute kicks in.
const calibrationBand = 0.25

// generateFn matches cache.Cache.Generate's signature.
type generateFn func(ctx context.Context, router *llm.Router, provider, model string, req llm.Request, caseID *string, purpose string) (llm.Response, error)

// Engine runs the four critique checks plus reflexion.
type Engine struct {
	store    store.Store
	router   *llm.Router
	generate generateFn
	provider string
	model    string
	cfg      config.Config
	entities *entity.Registry
	graph    *entity.Graph
}

// New builds a critique Engine. registry/graph re-resolve each cited
// source's Tier 0 entity candidates, reinforcing C2's co-occurrence graph
// on every pass an insight survives rather than only on first extraction;
// either may be nil to skip entity resolution.
func New(s store.Store, router *llm.Router, generate generateFn, provider, model string, cfg config.Config, registry *entity.Registry, graph *entity.Graph) *Engine {
	return &Engine{store: s, router: router, generate: generate, provider: provider, model: model, cfg: cfg, entities: registry, graph: graph}
}

// Note is a single critique observation, carried into the reflexion prompt
// when an insight is resubmitted.
type Note struct {
	Check   string
	Message string
}

// Result is the outcome of running all checks against one insight.
type Result struct {
	Insight *models.Insight
	Notes   []Note
	Tags    []string
}

// Run executes the four checks against a single insight, in order, updating
// it in place and persisting the result. docs must contain every Document
// the insight cites (by ID) for the citation check to be meaningful; corpus
// is the case's other active insights, used for calibration and
// contradiction.
func (e *Engine) Run(ctx context.Context, insight *models.Insight, docs map[string]*models.Document, corpus []*models.Insight) (*Result, error) {
	res := &Result{Insight: insight}

	if err := e.resolveCitedEntities(ctx, insight, docs); err != nil {
		return nil, fmt.Errorf("resolving cited entities for insight %s: %w", insight.ID, err)
	}

	e.checkCitations(insight, docs, res)
	e.checkCalibration(insight, corpus, res)
	if err := e.checkContradictions(ctx, insight, corpus, res); err != nil {
		return nil, fmt.Errorf("contradiction check: %w", err)
	}

	if insight.Confidence < groundingFloor {
		insight.Status = models.InsightStatusRejected
	} else if insight.Status == models.InsightStatusRaw {
		insight.Status = models.InsightStatusRefined
	}
	insight.UpdatedAt = time.Now()

	if err := e.store.SaveInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("saving critiqued insight %s: %w", insight.ID, err)
	}
	return res, nil
}

// resolveCitedEntities re-resolves every cited source document's Tier 0
// entity candidates through the registry, over doc.Signals.Entities, so the
// co-occurrence graph strengthens as an insight survives repeated critique
// passes, not only on first extraction.
func (e *Engine) resolveCitedEntities(ctx context.Context, insight *models.Insight, docs map[string]*models.Document) error {
	for _, id := range insight.SourceIDs.Slice() {
		doc, ok := docs[id]
		if !ok || doc.Signals == nil {
			continue
		}
		if _, err := entity.ResolveDocumentEntities(ctx, e.entities, e.graph, doc.CreatedAt, doc.Signals.Entities); err != nil {
			return err
		}
	}
	return nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normaliseForMatch(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// checkCitations verifies every excerpt appears, case-insensitive and
// whitespace-normalised, in some cited source document's content.
func (e *Engine) checkCitations(insight *models.Insight, docs map[string]*models.Document, res *Result) {
	for _, excerpt := range insight.Excerpts {
		if excerpt == "" {
			continue
		}
		needle := normaliseForMatch(excerpt)
		found := false
		for _, id := range insight.SourceIDs.Slice() {
			doc, ok := docs[id]
			if !ok {
				continue
			}
			if strings.Contains(normaliseForMatch(doc.Content), needle) {
				found = true
				break
			}
		}
		if !found {
			insight.Confidence *= 0.7
			res.Tags = append(res.Tags, "ungrounded")
			res.Notes = append(res.Notes, Note{Check: "citation", Message: fmt.Sprintf("excerpt not found verbatim in any cited source: %q", truncate(excerpt, 80))})
		}
	}
}

// checkCalibration recomputes a heuristic significance from length, theme
// overlap with the corpus, and emotional-tag density, and clamps the claimed
// significance toward it if they diverge beyond calibrationBand.
func (e *Engine) checkCalibration(insight *models.Insight, corpus []*models.Insight, res *Result) {
	heuristic := heuristicSignificance(insight, corpus)
	if diff := insight.Significance - heuristic; diff > calibrationBand || diff < -calibrationBand {
		old := insight.Significance
		insight.Significance = clamp(insight.Significance, heuristic)
		res.Notes = append(res.Notes, Note{Check: "calibration", Message: fmt.Sprintf("significance recalibrated from %.2f toward heuristic %.2f -> %.2f", old, heuristic, insight.Significance)})
	}
}

func heuristicSignificance(insight *models.Insight, corpus []*models.Insight) float64 {
	lengthScore := clampUnit(float64(len(insight.Summary)) / 400.0)

	overlapCount := 0
	for _, other := range corpus {
		if other.ID == insight.ID {
			continue
		}
		if len(intersect(insight.Themes.Slice(), other.Themes.Slice())) > 0 {
			overlapCount++
		}
	}
	overlapScore := clampUnit(float64(overlapCount) / 5.0)

	tagDensity := clampUnit(float64(len(insight.EmotionalTags.Slice())) / 4.0)

	return clampUnit((lengthScore + overlapScore + tagDensity) / 3.0)
}

func clamp(claimed, heuristic float64) float64 {
	if claimed > heuristic {
		return heuristic + calibrationBand
	}
	return heuristic - calibrationBand
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type contradictionVerdict struct {
	Contradiction bool   `json:"contradiction"`
	Reason        string `json:"reason"`
}

const contradictionSystemPrompt = `Compare the two insights below. Respond with ONLY {"contradiction":true|false,"reason":""}. contradiction=true only if they make incompatible claims about the same subject, not merely different emphasis.`

// checkContradictions compares insight against up to
// cfg.ContradictionMaxPairs existing insights sharing at least two themes; a
// positive verdict records a "contradicts" edge between the two insights and
// lowers both confidences.
func (e *Engine) checkContradictions(ctx context.Context, insight *models.Insight, corpus []*models.Insight, res *Result) error {
	candidates := sharedThemeCandidates(insight, corpus, e.cfg.ContradictionMaxPairs)
	for _, other := range candidates {
		prompt := fmt.Sprintf("Insight A: %s\nInsight B: %s", insight.Summary, other.Summary)
		resp, err := e.generate(ctx, e.router, e.provider, e.model, llm.Request{
			Prompt:      prompt,
			System:      contradictionSystemPrompt,
			Temperature: 0,
			MaxTokens:   200,
		}, &insight.CaseID, "critique_contradiction")
		if err != nil {
			return err
		}
		var verdict contradictionVerdict
		if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &verdict); err != nil {
			continue // malformed verdict: skip rather than fail the whole critique pass
		}
		if !verdict.Contradiction {
			continue
		}
		if err := e.store.InsightRelationshipUpsert(ctx, insight.ID, other.ID, "contradicts", time.Now()); err != nil {
			return err
		}
		insight.Confidence *= 0.8
		other.Confidence *= 0.8
		if err := e.store.SaveInsight(ctx, other); err != nil {
			return err
		}
		res.Tags = append(res.Tags, "contradicted")
		res.Notes = append(res.Notes, Note{Check: "contradiction", Message: fmt.Sprintf("contradicts insight %s: %s", other.ID, verdict.Reason)})
	}
	return nil
}

// sharedThemeCandidates collects every active corpus insight sharing at
// least two themes with insight, ranked by overlap count descending, and
// truncates to max — the highest-overlap pairs are checked first when the
// corpus holds more candidates than the per-insight contradiction budget.
func sharedThemeCandidates(insight *models.Insight, corpus []*models.Insight, max int) []*models.Insight {
	type scored struct {
		insight *models.Insight
		overlap int
	}
	var candidates []scored
	for _, other := range corpus {
		if other.ID == insight.ID || !other.IsActive() {
			continue
		}
		overlap := len(intersect(insight.Themes.Slice(), other.Themes.Slice()))
		if overlap >= 2 {
			candidates = append(candidates, scored{insight: other, overlap: overlap})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].overlap > candidates[j].overlap
	})
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]*models.Insight, len(candidates))
	for i, c := range candidates {
		out[i] = c.insight
	}
	return out
}

const reflexionSystemPrompt = `You previously produced an insight that was rejected on review. Refine it addressing the notes below, or omit it if it cannot be salvaged. Notes:
%s`

// ReflexionPrompt renders the critique notes into a system prompt for a
// single resubmission to Tier 1. Callers are responsible for enforcing the
// extraction_max_passes cap (critique itself is stateless per call).
func ReflexionPrompt(notes []Note) string {
	var sb strings.Builder
	for _, n := range notes {
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", n.Check, n.Message))
	}
	return fmt.Sprintf(reflexionSystemPrompt, sb.String())
}
