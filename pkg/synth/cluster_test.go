package synth

import (
	"testing"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func themedInsight(id string, themes ...string) *models.Insight {
	return &models.Insight{ID: id, Themes: models.NewStringSet(themes...)}
}

func TestRun_ThemeStrategy_ConnectsSharedThemePairs(t *testing.T) {
	a := themedInsight("a", "grief", "abandonment")
	b := themedInsight("b", "grief", "abandonment")
	c := themedInsight("c", "joy", "growth")

	clusters := Run([]*models.Insight{a, b, c}, StrategyTheme, 2)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Insights, 2)
}

func TestRun_ThemeStrategy_RequiresTwoSharedThemes(t *testing.T) {
	a := themedInsight("a", "grief")
	b := themedInsight("b", "grief")

	clusters := Run([]*models.Insight{a, b}, StrategyTheme, 2)
	assert.Empty(t, clusters, "single shared theme should not connect a pair")
}

func TestRun_MinSizeFiltersSmallClusters(t *testing.T) {
	a := themedInsight("a", "grief", "abandonment")
	b := themedInsight("b", "grief", "abandonment")
	c := themedInsight("c", "joy", "growth")

	clusters := Run([]*models.Insight{a, b, c}, StrategyTheme, 3)
	assert.Empty(t, clusters)
}

func TestRun_EntityStrategy_ConnectsSharedCapitalisedTokens(t *testing.T) {
	a := &models.Insight{ID: "a", Excerpts: []string{"John Smith came by the house again"}}
	b := &models.Insight{ID: "b", Excerpts: []string{"Talked to John Smith on the phone"}}
	c := &models.Insight{ID: "c", Excerpts: []string{"nothing capitalised mentioned here at all"}}

	clusters := Run([]*models.Insight{a, b, c}, StrategyEntity, 2)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Insights, 2)
}

func TestRun_TimeStrategy_BucketsByWindowAndMergesUndersized(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	early1 := dated("e1", base)
	early2 := dated("e2", base.Add(24*time.Hour))
	late := dated("l1", base.Add(400*24*time.Hour)) // far outside the window, alone

	clusters := Run([]*models.Insight{early1, early2, late}, StrategyTime, 1)
	// the lone late insight's undersized bucket merges into the nearest bucket
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Insights, 3)
}

func dated(id string, at time.Time) *models.Insight {
	t := at
	return &models.Insight{ID: id, EarliestSourceDate: &t}
}

func TestRun_AutoPicksHighestMeanSilhouette(t *testing.T) {
	a := themedInsight("a", "grief", "abandonment")
	b := themedInsight("b", "grief", "abandonment")
	c := themedInsight("c", "grief", "abandonment")

	clusters := Run([]*models.Insight{a, b, c}, StrategyAuto, 2)
	require.NotEmpty(t, clusters, "auto mode should surface the theme clustering here since no dates or entity tokens exist")
}

func TestDominantThemes_OnlyThemesSharedByMoreThanOne(t *testing.T) {
	group := []*models.Insight{
		themedInsight("a", "grief", "solo"),
		themedInsight("b", "grief"),
	}
	themes := dominantThemes(group)
	assert.Equal(t, []string{"grief"}, themes)
}

func TestCohesion_SingleInsightIsFullyCohesive(t *testing.T) {
	group := []*models.Insight{themedInsight("a", "grief")}
	assert.Equal(t, 1.0, cohesion(group))
}
