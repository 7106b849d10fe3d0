package pipeline

import (
	"context"
	"testing"

	"github.com/brentyJ/recog/pkg/critique"
	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringPayload_MissingKey(t *testing.T) {
	v, ok := stringPayload(map[string]any{}, "document_id")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStringPayload_WrongType(t *testing.T) {
	v, ok := stringPayload(map[string]any{"document_id": 42}, "document_id")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStringPayload_Present(t *testing.T) {
	v, ok := stringPayload(map[string]any{"document_id": "doc-1"}, "document_id")
	assert.True(t, ok)
	assert.Equal(t, "doc-1", v)
}

func TestFirstOf_EmptySliceReturnsEmptyString(t *testing.T) {
	assert.Empty(t, firstOf(nil))
}

func TestFirstOf_ReturnsFirstElement(t *testing.T) {
	assert.Equal(t, "a", firstOf([]string{"a", "b"}))
}

func TestReflexionNotes_DelegatesToCritiquePackage(t *testing.T) {
	notes := []critique.Note{{Check: "citation", Message: "missing quote"}}
	out := reflexionNotes(notes)
	assert.Contains(t, out, "missing quote")
}

func TestAdvanceCase_PerformsLegalTransition(t *testing.T) {
	fs := newFakeStore(&models.Case{ID: "case-1", State: models.CaseScanning})
	d := &Dispatcher{store: fs}

	err := d.advanceCase(context.Background(), "case-1", models.CaseScanning, models.CaseProcessing, "extraction started")
	require.NoError(t, err)
	assert.Equal(t, models.CaseProcessing, fs.cases["case-1"].State)
}

func TestAdvanceCase_SwallowsStaleTransition(t *testing.T) {
	fs := newFakeStore(&models.Case{ID: "case-1", State: models.CaseProcessing})
	d := &Dispatcher{store: fs}

	// Case is already past "scanning" (e.g. a concurrent item advanced it
	// first); this should be a no-op, not an error.
	err := d.advanceCase(context.Background(), "case-1", models.CaseScanning, models.CaseProcessing, "extraction started")
	require.NoError(t, err)
	assert.Equal(t, models.CaseProcessing, fs.cases["case-1"].State, "state is left as the concurrent winner set it")
}

func TestAdvanceCase_PropagatesRealErrors(t *testing.T) {
	fs := newFakeStore(&models.Case{ID: "case-1", State: models.CaseScanning})
	d := &Dispatcher{store: fs}

	err := d.advanceCase(context.Background(), "missing-case", models.CaseScanning, models.CaseProcessing, "extraction started")
	assert.Error(t, err)
}
