package synthesis

import (
	"testing"

	"github.com/brentyJ/recog/pkg/config"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(id string, pType models.PatternType, strength float64, insightIDs ...string) *models.Pattern {
	return &models.Pattern{ID: id, PatternType: pType, Strength: strength, InsightIDs: models.NewStringSet(insightIDs...)}
}

func TestReady_RequiresMinPatternCountAndMeanStrength(t *testing.T) {
	cfg := config.Config{SynthesisMinPatterns: 2, SynthesisSignificanceThreshold: 0.5}
	e := &Engine{cfg: cfg}

	tooFew := []*models.Pattern{pattern("p1", "behavioral", 0.9)}
	assert.False(t, e.Ready(tooFew))

	weak := []*models.Pattern{pattern("p1", "behavioral", 0.2), pattern("p2", "behavioral", 0.1)}
	assert.False(t, e.Ready(weak))

	strong := []*models.Pattern{pattern("p1", "behavioral", 0.9), pattern("p2", "behavioral", 0.7)}
	assert.True(t, e.Ready(strong))
}

func TestGroupPatterns_SameTypeConnects(t *testing.T) {
	a := pattern("a", "behavioral", 0.9)
	b := pattern("b", "behavioral", 0.8)
	c := pattern("c", "cognitive", 0.8)

	groups := groupPatterns([]*models.Pattern{a, b, c})
	require.Len(t, groups, 2)
}

func TestGroupPatterns_OverlappingInsightIDsConnect(t *testing.T) {
	a := pattern("a", "behavioral", 0.9, "i1", "i2")
	b := pattern("b", "cognitive", 0.8, "i2", "i3")

	groups := groupPatterns([]*models.Pattern{a, b})
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, overlaps(models.NewStringSet("i1", "i2"), models.NewStringSet("i2", "i3")))
	assert.False(t, overlaps(models.NewStringSet("i1"), models.NewStringSet("i2")))
}

func TestMeanStrength(t *testing.T) {
	patterns := []*models.Pattern{pattern("a", "behavioral", 0.4), pattern("b", "behavioral", 0.6)}
	assert.InDelta(t, 0.5, meanStrength(patterns), 1e-9)
	assert.Zero(t, meanStrength(nil))
}
