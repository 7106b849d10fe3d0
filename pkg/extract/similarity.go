// Package extract implements Tier 1: turning a Document plus its Tier 0
// signals into zero or more persisted Insights, including near-duplicate
// detection/merge against the case's existing active insights.
package extract

import (
	"math"
	"strings"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/samber/lo"
)

// Weights controls the relative contribution of theme overlap, pattern
// overlap, and summary-text cosine similarity to the merge score. Kept
// tunable per spec (not hardcoded): defaults are 0.4/0.2/0.4, but a caller
// may supply any positive weighting via config.
type Weights struct {
	Theme   float64
	Pattern float64
	Cosine  float64
}

// DefaultWeights returns the spec's default α/β/γ weighting.
func DefaultWeights() Weights {
	return Weights{Theme: 0.4, Pattern: 0.2, Cosine: 0.4}
}

// Similarity scores how alike two insights are on [0,1]: a weighted blend of
// Jaccard similarity over themes, Jaccard similarity over patterns, and
// cosine similarity of their summaries' plain term-frequency vectors (no
// inverse-document-frequency weighting is applied).
func Similarity(a, b *models.Insight, w Weights) float64 {
	themeSim := jaccard(a.Themes.Slice(), b.Themes.Slice())
	patternSim := jaccard(a.Patterns.Slice(), b.Patterns.Slice())
	cosineSim := cosineSimilarity(a.Summary, b.Summary)
	return w.Theme*themeSim + w.Pattern*patternSim + w.Cosine*cosineSim
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := lo.Uniq(a)
	setB := lo.Uniq(b)
	inter := lo.Intersect(setA, setB)
	union := lo.Union(setA, setB)
	if len(union) == 0 {
		return 0
	}
	return float64(len(inter)) / float64(len(union))
}

// cosineSimilarity compares two texts as term-frequency vectors over their
// shared vocabulary. Documents in a single case are short enough that a
// plain TF (not full TF-IDF against a corpus) weighting is adequate; the name
// is kept "cosine" per the governing spec's formula label.
func cosineSimilarity(a, b string) float64 {
	va := termFreq(a)
	lb := termFreq(b)
	if len(va) == 0 || len(lb) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, fa := range va {
		normA += fa * fa
		if fb, ok := lb[term]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range lb {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFreq(text string) map[string]float64 {
	words := strings.Fields(strings.ToLower(text))
	freq := make(map[string]float64, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w == "" {
			continue
		}
		freq[w]++
	}
	return freq
}

// FindBestMatch returns the highest-scoring candidate at or above threshold,
// or nil if none clears it.
func FindBestMatch(insight *models.Insight, candidates []*models.Insight, threshold float64, w Weights) (*models.Insight, float64) {
	var best *models.Insight
	var bestScore float64
	for _, c := range candidates {
		if c.ID == insight.ID {
			continue
		}
		score := Similarity(insight, c, w)
		if score >= threshold && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}
