// Package pipeline wires the tier engines (extract, critique, synth,
// synthesis) into the durable queue as a queue.Dispatcher, and decides what
// successor work a completed item enqueues, per the case state machine's
// auto-progression rule in spec.md §4.9.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/brentyJ/recog/pkg/critique"
	"github.com/brentyJ/recog/pkg/extract"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
	"github.com/brentyJ/recog/pkg/synth"
	"github.com/brentyJ/recog/pkg/synthesis"
)

// Dispatcher implements queue.Dispatcher, routing each queue item to its
// tier engine and deciding successor items.
type Dispatcher struct {
	store     store.Store
	extractor *extract.Extractor
	critic    *critique.Engine
	synth     *synth.Engine
	synth3    *synthesis.Engine
}

// New builds a pipeline Dispatcher over the given tier engines.
func New(s store.Store, extractor *extract.Extractor, critic *critique.Engine, synthEngine *synth.Engine, synthesisEngine *synthesis.Engine) *Dispatcher {
	return &Dispatcher{store: s, extractor: extractor, critic: critic, synth: synthEngine, synth3: synthesisEngine}
}

// Dispatch routes item to its tier and returns the follow-up items to
// enqueue on success.
func (d *Dispatcher) Dispatch(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error) {
	switch item.Kind {
	case models.QueueExtract:
		return d.dispatchExtract(ctx, item)
	case models.QueueCritique:
		return d.dispatchCritique(ctx, item)
	case models.QueueCorrelate:
		return d.dispatchCorrelate(ctx, item)
	case models.QueueSynthesize:
		return d.dispatchSynthesize(ctx, item)
	default:
		return nil, fmt.Errorf("unknown queue kind %q", item.Kind)
	}
}

// advanceCase moves caseID from->to, treating ErrStaleTransition as benign:
// a concurrent queue item (or the ingestion handler) already made the move,
// so there is nothing left for this caller to do.
func (d *Dispatcher) advanceCase(ctx context.Context, caseID, from, to models.CaseState, cause string) error {
	err := d.store.AdvanceCase(ctx, caseID, from, to, cause)
	if err != nil && !errors.Is(err, store.ErrStaleTransition) {
		return fmt.Errorf("advancing case %s %s->%s: %w", caseID, from, to, err)
	}
	return nil
}

func stringPayload(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d *Dispatcher) dispatchExtract(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error) {
	docID, ok := stringPayload(item.Payload, "document_id")
	if !ok {
		return nil, fmt.Errorf("extract item %s missing document_id", item.ID)
	}
	runID, _ := stringPayload(item.Payload, "run_id")

	doc, err := d.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", docID, err)
	}

	if err := d.advanceCase(ctx, doc.CaseID, models.CaseScanning, models.CaseProcessing, "extraction started"); err != nil {
		return nil, err
	}

	var themeVocabulary []string
	if raw, ok := item.Payload["theme_vocabulary"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				themeVocabulary = append(themeVocabulary, s)
			}
		}
	}
	reflexionNotes, _ := stringPayload(item.Payload, "reflexion_notes")

	insights, err := d.extractor.Run(ctx, doc, runID, themeVocabulary, reflexionNotes)
	if err != nil {
		return nil, err
	}

	var followups []*models.QueueItem
	for _, ins := range insights {
		if ins.Status == models.InsightStatusMerged {
			continue // merged insights were re-critiqued as part of their winner
		}
		followups = append(followups, newQueueItem(models.QueueCritique, &doc.CaseID, map[string]any{
			"insight_id": ins.ID,
			"run_id":     runID,
		}))
	}

	allDone, err := d.allDocumentsProcessed(ctx, doc.CaseID)
	if err != nil {
		return nil, fmt.Errorf("checking document completion for case %s: %w", doc.CaseID, err)
	}
	if allDone {
		followups = append(followups, newQueueItem(models.QueueCorrelate, &doc.CaseID, map[string]any{
			"case_id": doc.CaseID,
			"run_id":  runID,
		}))
	}
	return followups, nil
}

// allDocumentsProcessed reports whether every document ingested for caseID
// has completed Tier 1 extraction, the trigger for enqueueing correlation
// (spec §4.9: "when all documents in the run have been extracted, enqueue a
// correlate item").
func (d *Dispatcher) allDocumentsProcessed(ctx context.Context, caseID string) (bool, error) {
	docs, err := d.store.ListDocuments(ctx, caseID)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if doc.ProcessedAt == nil {
			return false, nil
		}
	}
	return len(docs) > 0, nil
}

func (d *Dispatcher) dispatchCritique(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error) {
	insightID, ok := stringPayload(item.Payload, "insight_id")
	if !ok {
		return nil, fmt.Errorf("critique item %s missing insight_id", item.ID)
	}
	insight, err := d.store.GetInsight(ctx, insightID)
	if err != nil {
		return nil, fmt.Errorf("loading insight %s: %w", insightID, err)
	}

	docs, err := loadDocs(ctx, d.store, insight)
	if err != nil {
		return nil, err
	}
	corpus, err := d.store.ActiveInsightsFor(ctx, insight.CaseID, nil)
	if err != nil {
		return nil, fmt.Errorf("loading corpus for critique: %w", err)
	}

	result, err := d.critic.Run(ctx, insight, docs, corpus)
	if err != nil {
		return nil, err
	}

	if insight.Status == models.InsightStatusRejected && insight.PassCount == 1 {
		// one reflexion attempt only (spec §4.6)
		return []*models.QueueItem{newQueueItem(models.QueueExtract, &insight.CaseID, map[string]any{
			"document_id":   firstOf(insight.SourceIDs.Slice()),
			"run_id":        insight.RunID,
			"reflexion_for": insight.ID,
			"reflexion_notes": reflexionNotes(result.Notes),
		})}, nil
	}
	return nil, nil
}

func (d *Dispatcher) dispatchCorrelate(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error) {
	caseID, ok := stringPayload(item.Payload, "case_id")
	if !ok {
		return nil, fmt.Errorf("correlate item %s missing case_id", item.ID)
	}
	runID, _ := stringPayload(item.Payload, "run_id")

	patterns, err := d.synth.RunPasses(ctx, caseID, runID, synth.StrategyAuto)
	if err != nil {
		return nil, err
	}
	if d.synth3.Ready(patterns) {
		return []*models.QueueItem{newQueueItem(models.QueueSynthesize, &caseID, map[string]any{"case_id": caseID})}, nil
	}

	// No higher-order synthesis is warranted yet: the run is exhausted with
	// only Tier 2 patterns to show, so the case completes with those partial
	// results rather than waiting indefinitely on Tier 3 (spec.md §4.9).
	if err := d.advanceCase(ctx, caseID, models.CaseProcessing, models.CaseComplete, "correlation exhausted without reaching synthesis threshold"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *Dispatcher) dispatchSynthesize(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error) {
	caseID, ok := stringPayload(item.Payload, "case_id")
	if !ok {
		return nil, fmt.Errorf("synthesize item %s missing case_id", item.ID)
	}
	if _, err := d.synth3.Run(ctx, caseID); err != nil {
		return nil, err
	}
	if err := d.advanceCase(ctx, caseID, models.CaseProcessing, models.CaseComplete, "synthesis complete"); err != nil {
		return nil, err
	}
	return nil, nil
}

func newQueueItem(kind models.QueueKind, caseID *string, payload map[string]any) *models.QueueItem {
	return &models.QueueItem{
		ID:      models.NewID(),
		CaseID:  caseID,
		Kind:    kind,
		Payload: payload,
		Status:  models.QueueStatusQueued,
	}
}

func loadDocs(ctx context.Context, s store.Store, insight *models.Insight) (map[string]*models.Document, error) {
	docs := make(map[string]*models.Document, len(insight.SourceIDs))
	for _, id := range insight.SourceIDs.Slice() {
		doc, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading source document %s: %w", id, err)
		}
		docs[id] = doc
	}
	return docs, nil
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func reflexionNotes(notes []critique.Note) string {
	return critique.ReflexionPrompt(notes)
}
