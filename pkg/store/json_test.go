package store

import (
	"testing"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalSet_RoundTrip(t *testing.T) {
	s := models.NewStringSet("grief", "abandonment")
	raw, err := marshalSet(s)
	require.NoError(t, err)

	got, err := unmarshalSet(raw)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abandonment", "grief"}, got.Slice())
}

func TestUnmarshalSet_EmptyBytesReturnsEmptySet(t *testing.T) {
	got, err := unmarshalSet(nil)
	require.NoError(t, err)
	assert.Empty(t, got.Slice())
}

func TestMarshalUnmarshalStrings_RoundTrip(t *testing.T) {
	raw, err := marshalStrings([]string{"a", "b"})
	require.NoError(t, err)
	got, err := unmarshalStrings(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMarshalStrings_NilBecomesEmptyArray(t *testing.T) {
	raw, err := marshalStrings(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestUnmarshalStrings_EmptyBytesReturnsEmptySlice(t *testing.T) {
	got, err := unmarshalStrings(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
}

func TestMarshalUnmarshalMap_RoundTrip(t *testing.T) {
	raw, err := marshalMap(map[string]any{"k": "v"})
	require.NoError(t, err)
	got, err := unmarshalMap(raw)
	require.NoError(t, err)
	assert.Equal(t, "v", got["k"])
}

func TestMarshalMap_NilBecomesEmptyObject(t *testing.T) {
	raw, err := marshalMap(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestSecondsToDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, secondsToDuration(90))
}
