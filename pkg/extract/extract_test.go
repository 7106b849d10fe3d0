package extract

import (
	"strings"
	"testing"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"insights\":[{\"summary\":\"s\"}],\"meta\":{\"content_quality\":\"rich\"}}\n```"
	parsed, err := parseResponse(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Insights, 1)
	assert.Equal(t, "s", parsed.Insights[0].Summary)
	assert.Equal(t, "rich", parsed.Meta.ContentQuality)
}

func TestParseResponse_PlainJSON(t *testing.T) {
	parsed, err := parseResponse(`{"insights":[],"meta":{"content_quality":"thin"}}`)
	require.NoError(t, err)
	assert.Empty(t, parsed.Insights)
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	_, err := parseResponse("not json at all")
	assert.Error(t, err)
}

func TestToInsight_UnknownTypeDefaultsToOther(t *testing.T) {
	doc := &models.Document{ID: "doc-1", CaseID: "case-1"}
	ri := rawInsight{Summary: "s", InsightType: "nonsense"}
	ins := toInsight(ri, doc, "run-1")
	assert.Equal(t, models.InsightOther, ins.InsightType)
	assert.Equal(t, models.InsightStatusRaw, ins.Status)
	assert.Equal(t, 1, ins.PassCount)
	assert.True(t, ins.SourceIDs.Contains("doc-1"))
}

func TestToInsight_KnownTypePreserved(t *testing.T) {
	doc := &models.Document{ID: "doc-1", CaseID: "case-1"}
	ri := rawInsight{Summary: "s", InsightType: "relational"}
	ins := toInsight(ri, doc, "run-1")
	assert.Equal(t, models.InsightRelational, ins.InsightType)
}

func TestToInsight_DiscountsConfidenceWhenInjectionSuspected(t *testing.T) {
	doc := &models.Document{ID: "doc-1", CaseID: "case-1", Signals: &signals.Signals{InjectionSuspected: true}}
	ri := rawInsight{Summary: "s", Confidence: 0.8}
	ins := toInsight(ri, doc, "run-1")
	assert.InDelta(t, 0.4, ins.Confidence, 1e-9, "injection-suspected documents halve starting confidence")
}

func TestToInsight_NoDiscountWhenInjectionNotSuspected(t *testing.T) {
	doc := &models.Document{ID: "doc-1", CaseID: "case-1", Signals: &signals.Signals{InjectionSuspected: false}}
	ri := rawInsight{Summary: "s", Confidence: 0.8}
	ins := toInsight(ri, doc, "run-1")
	assert.InDelta(t, 0.8, ins.Confidence, 1e-9)
}

func TestMergeInsights_UnionsAndAverages(t *testing.T) {
	existing := &models.Insight{
		Themes:       models.NewStringSet("grief"),
		Patterns:     models.NewStringSet("withdrawal"),
		Excerpts:     []string{"first excerpt"},
		Significance: 0.4,
		Confidence:   0.6,
		PassCount:    1,
		SourceIDs:    models.NewStringSet("doc-1"),
	}
	incoming := &models.Insight{
		Themes:       models.NewStringSet("abandonment"),
		Patterns:     models.NewStringSet("withdrawal"),
		Excerpts:     []string{"second excerpt"},
		Significance: 0.8,
		Confidence:   0.4,
		PassCount:    1,
		SourceIDs:    models.NewStringSet("doc-2"),
	}

	merged := mergeInsights(existing, incoming)

	assert.ElementsMatch(t, []string{"abandonment", "grief"}, merged.Themes.Slice())
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, merged.SourceIDs.Slice())
	assert.Equal(t, []string{"first excerpt", "second excerpt"}, merged.Excerpts)
	assert.Equal(t, 2, merged.PassCount)
	assert.InDelta(t, 0.8, merged.Significance, 1e-9, "significance takes the max of the two")
	assert.InDelta(t, 0.5, merged.Confidence, 1e-9, "confidence takes the mean of the two")
}

func TestTruncatePreservingSentences_NoopWhenUnderLimit(t *testing.T) {
	s := "A short sentence."
	assert.Equal(t, s, truncatePreservingSentences(s, 1000))
}

func TestTruncatePreservingSentences_CutsAtSentenceBoundary(t *testing.T) {
	content := "First sentence here. Second sentence follows. Third sentence trails off into more words that push well past the limit entirely."
	out := truncatePreservingSentences(content, 50)
	assert.True(t, strings.HasSuffix(out, "."), "truncation should land on a sentence terminator")
	assert.LessOrEqual(t, len(out), 50)
}

func TestTruncatePreservingSentences_FallsBackWhenNoTerminatorNearby(t *testing.T) {
	content := strings.Repeat("a", 1000)
	out := truncatePreservingSentences(content, 500)
	assert.Equal(t, 500, len(out))
}
