package extract

import (
	"testing"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insight(id, summary string, themes, patterns []string) *models.Insight {
	return &models.Insight{
		ID:       id,
		Summary:  summary,
		Themes:   models.NewStringSet(themes...),
		Patterns: models.NewStringSet(patterns...),
	}
}

func TestSimilarity_IdenticalInsightsScoreOne(t *testing.T) {
	a := insight("a", "feels abandoned by her mother", []string{"abandonment", "grief"}, []string{"withdrawal"})
	b := insight("b", "feels abandoned by her mother", []string{"abandonment", "grief"}, []string{"withdrawal"})

	score := Similarity(a, b, DefaultWeights())
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestSimilarity_DisjointInsightsScoreZero(t *testing.T) {
	a := insight("a", "angry at his brother", []string{"anger"}, []string{"conflict"})
	b := insight("b", "hopeful about the new job", []string{"hope"}, []string{"growth"})

	score := Similarity(a, b, DefaultWeights())
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestSimilarity_PartialOverlapIsBetweenZeroAndOne(t *testing.T) {
	a := insight("a", "feels abandoned by her mother", []string{"abandonment", "grief"}, []string{"withdrawal"})
	b := insight("b", "feels abandoned and alone", []string{"abandonment"}, []string{})

	score := Similarity(a, b, DefaultWeights())
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestFindBestMatch_RespectsThreshold(t *testing.T) {
	target := insight("t", "feels abandoned by her mother", []string{"abandonment", "grief"}, []string{"withdrawal"})
	near := insight("n", "feels abandoned by her mother", []string{"abandonment", "grief"}, []string{"withdrawal"})
	far := insight("f", "excited about a promotion", []string{"joy"}, []string{"growth"})

	best, score := FindBestMatch(target, []*models.Insight{far, near}, 0.5, DefaultWeights())
	require.NotNil(t, best)
	assert.Equal(t, "n", best.ID)
	assert.Greater(t, score, 0.5)
}

func TestFindBestMatch_NoneClearsThreshold(t *testing.T) {
	target := insight("t", "feels abandoned by her mother", []string{"abandonment"}, nil)
	far := insight("f", "excited about a promotion", []string{"joy"}, []string{"growth"})

	best, score := FindBestMatch(target, []*models.Insight{far}, 0.9, DefaultWeights())
	assert.Nil(t, best)
	assert.Zero(t, score)
}

func TestFindBestMatch_ExcludesSelf(t *testing.T) {
	target := insight("t", "feels abandoned by her mother", []string{"abandonment"}, nil)
	best, _ := FindBestMatch(target, []*models.Insight{target}, 0.1, DefaultWeights())
	assert.Nil(t, best)
}
