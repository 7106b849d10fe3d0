package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brentyJ/recog/pkg/config"
	"github.com/brentyJ/recog/pkg/entity"
	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// ErrBadModelOutput is returned when the model's response doesn't parse as
// the expected JSON shape, even after the stricter retry.
var ErrBadModelOutput = errors.New("extract: model output did not parse as valid JSON")

const jsonSchemaHint = `Respond with ONLY a JSON object of this exact shape, no prose, no markdown fences:
{"insights":[{"summary":"","themes":[""],"emotional_tags":[""],"patterns":[""],"significance":0.0,"confidence":0.0,"insight_type":"observation|realisation|opinion|relational|other","excerpt":""}],"meta":{"content_quality":""}}`

type rawInsight struct {
	Summary       string   `json:"summary"`
	Themes        []string `json:"themes"`
	EmotionalTags []string `json:"emotional_tags"`
	Patterns      []string `json:"patterns"`
	Significance  float64  `json:"significance"`
	Confidence    float64  `json:"confidence"`
	InsightType   string   `json:"insight_type"`
	Excerpt       string   `json:"excerpt"`
}

type rawResponse struct {
	Insights []rawInsight `json:"insights"`
	Meta     struct {
		ContentQuality string `json:"content_quality"`
	} `json:"meta"`
}

// Extractor implements Tier 1 over a Document.
type Extractor struct {
	store    store.Store
	router   *llm.Router
	generate generateFn
	provider string
	model    string
	cfg      config.Config
	entities *entity.Registry
	graph    *entity.Graph
}

// generateFn matches cache.Cache.Generate's signature so tests can stub it
// without a live router, provider, or database.
type generateFn func(ctx context.Context, router *llm.Router, provider, model string, req llm.Request, caseID *string, purpose string) (llm.Response, error)

// New builds an Extractor. generate is typically (*cache.Cache).Generate;
// provider/model select which entry of the configured router chain is used
// for extraction calls. registry/graph canonicalise Tier 0 entity candidates
// into C2's entity registry; either may be nil to skip entity resolution
// (e.g. in tests that exercise extraction in isolation).
func New(s store.Store, router *llm.Router, generate generateFn, provider, model string, cfg config.Config, registry *entity.Registry, graph *entity.Graph) *Extractor {
	return &Extractor{store: s, router: router, generate: generate, provider: provider, model: model, cfg: cfg, entities: registry, graph: graph}
}

func (e *Extractor) call(ctx context.Context, req llm.Request, caseID *string, purpose string) (llm.Response, error) {
	return e.generate(ctx, e.router, e.provider, e.model, req, caseID, purpose)
}

// Run executes the full Tier 1 algorithm for one document: gate, truncate,
// assemble prompt, call the router (with one stricter retry on bad output),
// filter by quality floor, deduplicate against the case's active insights,
// and persist.
func (e *Extractor) Run(ctx context.Context, doc *models.Document, runID string, themeVocabulary []string, reflexionNotes string) ([]*models.Insight, error) {
	wordCount := len(strings.Fields(doc.Content))
	if wordCount < e.cfg.MinContentWords {
		return nil, nil
	}

	if doc.Signals != nil {
		if _, err := entity.ResolveDocumentEntities(ctx, e.entities, e.graph, doc.CreatedAt, doc.Signals.Entities); err != nil {
			return nil, fmt.Errorf("resolving entities for document %s: %w", doc.ID, err)
		}
	}

	content := truncatePreservingSentences(doc.Content, e.cfg.MaxContentChars)
	prompt := e.buildPrompt(doc, content, themeVocabulary)

	system := jsonSchemaHint
	if reflexionNotes != "" {
		system = reflexionNotes + "\n" + jsonSchemaHint
	}

	resp, err := e.call(ctx, llm.Request{
		Prompt:      prompt,
		System:      system,
		Temperature: e.cfg.ExtractionTemperature,
		MaxTokens:   e.cfg.ExtractionMaxTokens,
	}, &doc.CaseID, "extract")
	if err != nil {
		return nil, fmt.Errorf("extracting document %s: %w", doc.ID, err)
	}

	parsed, err := parseResponse(resp.Content)
	if err != nil {
		// One retry with a stricter system prompt, per spec §4.5 step 4.
		resp, err = e.call(ctx, llm.Request{
			Prompt:      prompt,
			System:      jsonSchemaHint + "\nYour previous response failed to parse as JSON. Return ONLY the JSON object, nothing else.",
			Temperature: 0,
			MaxTokens:   e.cfg.ExtractionMaxTokens,
		}, &doc.CaseID, "extract_retry")
		if err != nil {
			return nil, fmt.Errorf("retrying extraction for document %s: %w", doc.ID, err)
		}
		parsed, err = parseResponse(resp.Content)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, ErrBadModelOutput)
		}
	}

	existing, err := e.store.ActiveInsightsFor(ctx, doc.CaseID, nil)
	if err != nil {
		return nil, fmt.Errorf("loading active insights for dedup: %w", err)
	}

	weights := Weights{Theme: e.cfg.SimilarityThemeWeight, Pattern: e.cfg.SimilarityPatternWeight, Cosine: e.cfg.SimilarityCosineWeight}

	var out []*models.Insight
	for _, ri := range parsed.Insights {
		if ri.Significance < e.cfg.MinSignificance || ri.Confidence < e.cfg.MinConfidence {
			continue
		}

		candidate := toInsight(ri, doc, runID)
		match, _ := FindBestMatch(candidate, existing, e.cfg.SimilarityThreshold, weights)
		if match != nil {
			merged := mergeInsights(match, candidate)
			if err := e.store.SaveInsight(ctx, merged); err != nil {
				return nil, fmt.Errorf("saving merged insight: %w", err)
			}
			candidate.Status = models.InsightStatusMerged
			candidate.MergedIntoID = &match.ID
			out = append(out, merged)
			continue
		}

		if err := e.store.SaveInsight(ctx, candidate); err != nil {
			return nil, fmt.Errorf("saving insight: %w", err)
		}
		existing = append(existing, candidate)
		out = append(out, candidate)
	}

	now := time.Now()
	doc.ProcessedAt = &now
	if err := e.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("marking document %s processed: %w", doc.ID, err)
	}
	return out, nil
}

func (e *Extractor) buildPrompt(doc *models.Document, content string, themeVocabulary []string) string {
	var sb strings.Builder
	sb.WriteString("You extract structured insights from a personal document.\n")
	if len(themeVocabulary) > 0 {
		sb.WriteString("Existing theme vocabulary (reuse these terms where they fit): ")
		sb.WriteString(strings.Join(themeVocabulary, ", "))
		sb.WriteString("\n")
	}
	if doc.Signals != nil {
		sb.WriteString(fmt.Sprintf("Structural signals: sentences=%d questions=%d temporal_buckets=%v\n",
			doc.Signals.Counts.Sentences, doc.Signals.Questions.Total, doc.Signals.TemporalCounts))
	}
	sb.WriteString("Document:\n")
	sb.WriteString(content)
	return sb.String()
}

func parseResponse(content string) (*rawResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	var parsed rawResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// injectionConfidenceDiscount scales an insight's starting confidence when
// its source document tripped the prompt-injection heuristic, so a document
// trying to steer the model carries less weight downstream without being
// dropped outright.
const injectionConfidenceDiscount = 0.5

func toInsight(ri rawInsight, doc *models.Document, runID string) *models.Insight {
	now := time.Now()
	insightType := models.InsightType(ri.InsightType)
	switch insightType {
	case models.InsightObservation, models.InsightRealisation, models.InsightOpinion, models.InsightRelational, models.InsightOther:
	default:
		insightType = models.InsightOther
	}

	confidence := ri.Confidence
	if doc.Signals != nil && doc.Signals.InjectionSuspected {
		confidence *= injectionConfidenceDiscount
	}

	return &models.Insight{
		ID:            models.NewID(),
		CaseID:        doc.CaseID,
		RunID:         runID,
		Summary:       ri.Summary,
		Themes:        models.NewStringSet(ri.Themes...),
		EmotionalTags: models.NewStringSet(ri.EmotionalTags...),
		Patterns:      models.NewStringSet(ri.Patterns...),
		Significance:  ri.Significance,
		Confidence:    confidence,
		InsightType:   insightType,
		SourceIDs:     models.NewStringSet(doc.ID),
		Excerpts:      []string{ri.Excerpt},
		Status:        models.InsightStatusRaw,
		PassCount:     1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// mergeInsights folds incoming into existing per spec §4.5 step 6: union
// source ids/themes/patterns/emotional tags/excerpts, bump pass_count,
// max-of significance, mean-of confidence.
func mergeInsights(existing, incoming *models.Insight) *models.Insight {
	existing.SourceIDs = existing.SourceIDs.Union(incoming.SourceIDs)
	existing.Themes = existing.Themes.Union(incoming.Themes)
	existing.Patterns = existing.Patterns.Union(incoming.Patterns)
	existing.EmotionalTags = existing.EmotionalTags.Union(incoming.EmotionalTags)
	existing.Excerpts = append(existing.Excerpts, incoming.Excerpts...)
	existing.PassCount++
	if incoming.Significance > existing.Significance {
		existing.Significance = incoming.Significance
	}
	existing.Confidence = (existing.Confidence + incoming.Confidence) / 2
	existing.UpdatedAt = time.Now()
	return existing
}

// truncatePreservingSentences truncates to maxChars without splitting mid
// sentence, searching backward from the cut point for a sentence terminator.
func truncatePreservingSentences(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	cut := content[:maxChars]
	for i := len(cut) - 1; i >= 0 && i > maxChars-400; i-- {
		if cut[i] == '.' || cut[i] == '!' || cut[i] == '?' {
			return cut[:i+1]
		}
	}
	return cut
}
