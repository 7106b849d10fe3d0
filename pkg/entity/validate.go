package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/models"
)

// Candidate is a low-confidence entity mention awaiting LLM classification.
type Candidate struct {
	EntityType models.EntityType
	RawValue   string
	Context    string // surrounding excerpt, for disambiguation
}

// Verdict is how the LLM classified one candidate.
type Verdict struct {
	Keep           bool
	Reject         bool
	ReclassifyType models.EntityType
}

const validationSystemPrompt = `You classify candidate named entities extracted from personal documents.
For each candidate, respond with one of: keep, reject, or reclassify_to:<type> where <type> is one of person, place, org, phone, email.
Reject candidates that are not real entities (e.g. common nouns misread as names, partial phone numbers, malformed emails).
Respond with ONLY a JSON array, one object per candidate: [{"index":<candidate number>,"verdict":"keep|reject|reclassify_to:<type>"}].`

// ValidateBatch sends a batch of low-confidence candidates to the router for
// classification, per spec §4.2's optional LLM validation path. Candidates
// the model doesn't mention default to Keep, since a silent omission should
// not silently discard a real mention.
func ValidateBatch(ctx context.Context, router *llm.Router, candidates []Candidate) (map[int]Verdict, error) {
	if len(candidates) == 0 {
		return map[int]Verdict{}, nil
	}

	var sb strings.Builder
	for idx, c := range candidates {
		fmt.Fprintf(&sb, "%d. type=%s value=%q context=%q\n", idx, c.EntityType, c.RawValue, c.Context)
	}

	resp, err := router.Generate(ctx, llm.Request{
		Prompt:      sb.String(),
		System:      validationSystemPrompt,
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("validating entity candidates: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("entity validation call failed: %s", resp.Error)
	}

	var raw []struct {
		Index  int    `json:"index"`
		Verdict string `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &raw); err != nil {
		return nil, fmt.Errorf("parsing entity validation response: %w", err)
	}

	out := make(map[int]Verdict, len(candidates))
	for i := range candidates {
		out[i] = Verdict{Keep: true}
	}
	for _, r := range raw {
		switch {
		case r.Verdict == "keep":
			out[r.Index] = Verdict{Keep: true}
		case r.Verdict == "reject":
			out[r.Index] = Verdict{Reject: true}
		case strings.HasPrefix(r.Verdict, "reclassify_to:"):
			out[r.Index] = Verdict{Keep: true, ReclassifyType: models.EntityType(strings.TrimPrefix(r.Verdict, "reclassify_to:"))}
		}
	}
	return out, nil
}
