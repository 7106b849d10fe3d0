package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSet_SliceIsSortedAndDeduped(t *testing.T) {
	s := NewStringSet("grief", "anger", "grief", "", "anger")
	require.Equal(t, []string{"anger", "grief"}, s.Slice())
}

func TestStringSet_Union(t *testing.T) {
	a := NewStringSet("grief", "anger")
	b := NewStringSet("anger", "hope")

	u := a.Union(b)
	assert.Equal(t, []string{"anger", "grief", "hope"}, u.Slice())
	// originals untouched
	assert.Equal(t, []string{"anger", "grief"}, a.Slice())
}

func TestStringSet_Contains(t *testing.T) {
	s := NewStringSet("grief")
	assert.True(t, s.Contains("grief"))
	assert.False(t, s.Contains("hope"))
}

func TestInsight_IsActive(t *testing.T) {
	active := &Insight{Status: InsightStatusRaw}
	assert.True(t, active.IsActive())

	merged := &Insight{Status: InsightStatusMerged}
	assert.False(t, merged.IsActive())

	rejected := &Insight{Status: InsightStatusRejected}
	assert.False(t, rejected.IsActive())
}

func TestInsight_MeetsQualityFloor(t *testing.T) {
	rejected := &Insight{Status: InsightStatusRejected, Significance: 0, Confidence: 0}
	assert.True(t, rejected.MeetsQualityFloor(0.5, 0.5), "rejected insights are exempt from the quality floor")

	low := &Insight{Status: InsightStatusRaw, Significance: 0.1, Confidence: 0.9}
	assert.False(t, low.MeetsQualityFloor(0.5, 0.5))

	high := &Insight{Status: InsightStatusRaw, Significance: 0.6, Confidence: 0.6}
	assert.True(t, high.MeetsQualityFloor(0.5, 0.5))
}
