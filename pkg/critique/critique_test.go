package critique

import (
	"testing"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCitations_FindsVerbatimExcerpt(t *testing.T) {
	e := &Engine{}
	insight := &models.Insight{
		Confidence: 0.9,
		Excerpts:   []string{"I always feel abandoned"},
		SourceIDs:  models.NewStringSet("doc-1"),
	}
	docs := map[string]*models.Document{
		"doc-1": {ID: "doc-1", Content: "Sometimes   I Always Feel Abandoned and alone."},
	}
	res := &Result{}
	e.checkCitations(insight, docs, res)

	assert.InDelta(t, 0.9, insight.Confidence, 1e-9, "whitespace/case-normalised match should not penalise confidence")
	assert.Empty(t, res.Tags)
}

func TestCheckCitations_PenalisesUngroundedExcerpt(t *testing.T) {
	e := &Engine{}
	insight := &models.Insight{
		Confidence: 1.0,
		Excerpts:   []string{"a quote that never appears anywhere"},
		SourceIDs:  models.NewStringSet("doc-1"),
	}
	docs := map[string]*models.Document{
		"doc-1": {ID: "doc-1", Content: "completely unrelated content"},
	}
	res := &Result{}
	e.checkCitations(insight, docs, res)

	assert.InDelta(t, 0.7, insight.Confidence, 1e-9)
	assert.Contains(t, res.Tags, "ungrounded")
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "citation", res.Notes[0].Check)
}

func TestHeuristicSignificance_BoundedToUnitInterval(t *testing.T) {
	insight := &models.Insight{
		ID:            "i1",
		Summary:       "a very long summary padded out with many words to push the length score toward its maximum possible value for this heuristic",
		Themes:        models.NewStringSet("grief", "abandonment"),
		EmotionalTags: models.NewStringSet("sad", "angry", "afraid", "ashamed"),
	}
	corpus := []*models.Insight{
		{ID: "i2", Themes: models.NewStringSet("grief")},
		{ID: "i3", Themes: models.NewStringSet("abandonment")},
	}
	v := heuristicSignificance(insight, corpus)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestCheckCalibration_RecalibratesBeyondBand(t *testing.T) {
	e := &Engine{}
	insight := &models.Insight{
		ID:           "i1",
		Summary:      "short",
		Significance: 1.0, // wildly overclaimed relative to heuristic
		Themes:       models.NewStringSet("grief"),
	}
	res := &Result{}
	e.checkCalibration(insight, nil, res)

	assert.Less(t, insight.Significance, 1.0)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "calibration", res.Notes[0].Check)
}

func TestCheckCalibration_NoChangeWithinBand(t *testing.T) {
	e := &Engine{}
	insight := &models.Insight{
		ID:           "i1",
		Summary:      "short",
		Significance: heuristicSignificance(&models.Insight{ID: "i1", Summary: "short"}, nil),
	}
	res := &Result{}
	e.checkCalibration(insight, nil, res)
	assert.Empty(t, res.Notes)
}

func TestSharedThemeCandidates_RequiresTwoSharedThemesAndCapsCount(t *testing.T) {
	target := &models.Insight{ID: "t", Themes: models.NewStringSet("grief", "abandonment", "anger")}
	one := &models.Insight{ID: "one", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief")}
	two := &models.Insight{ID: "two", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief", "abandonment")}
	three := &models.Insight{ID: "three", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief", "anger")}
	rejected := &models.Insight{ID: "rej", Status: models.InsightStatusRejected, Themes: models.NewStringSet("grief", "anger")}

	candidates := sharedThemeCandidates(target, []*models.Insight{one, two, three, rejected}, 1)
	require.Len(t, candidates, 1, "capped at max and excludes single-overlap and inactive insights")
	assert.NotEqual(t, "one", candidates[0].ID)
	assert.NotEqual(t, "rej", candidates[0].ID)
}

func TestSharedThemeCandidates_OrdersByOverlapCountDescending(t *testing.T) {
	target := &models.Insight{ID: "t", Themes: models.NewStringSet("grief", "abandonment", "anger", "shame")}
	twoOverlap := &models.Insight{ID: "two", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief", "abandonment")}
	threeOverlap := &models.Insight{ID: "three", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief", "abandonment", "anger")}
	fullOverlap := &models.Insight{ID: "four", Status: models.InsightStatusRaw, Themes: models.NewStringSet("grief", "abandonment", "anger", "shame")}

	// Deliberately listed in ascending-overlap store-iteration order so a
	// truncate-without-sort implementation would keep the weakest matches.
	candidates := sharedThemeCandidates(target, []*models.Insight{twoOverlap, threeOverlap, fullOverlap}, 2)
	require.Len(t, candidates, 2)
	assert.Equal(t, "four", candidates[0].ID, "highest theme overlap ranks first")
	assert.Equal(t, "three", candidates[1].ID, "second-highest overlap ranks second")
}

func TestReflexionPrompt_RendersEveryNote(t *testing.T) {
	notes := []Note{
		{Check: "citation", Message: "missing quote"},
		{Check: "calibration", Message: "overclaimed"},
	}
	prompt := ReflexionPrompt(notes)
	assert.Contains(t, prompt, "citation")
	assert.Contains(t, prompt, "missing quote")
	assert.Contains(t, prompt, "calibration")
	assert.Contains(t, prompt, "overclaimed")
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, clampUnit(-1))
	assert.Equal(t, 1.0, clampUnit(2))
	assert.Equal(t, 0.5, clampUnit(0.5))
}
