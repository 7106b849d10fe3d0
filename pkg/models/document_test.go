package models

import (
	"testing"

	"github.com/brentyJ/recog/pkg/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentFromParsed_PopulatesMetadataFromParsedFields(t *testing.T) {
	pc := ParsedContent{
		Text:       "hello world",
		Title:      "A Letter",
		Author:     "Jane",
		Date:       "2025-01-01",
		Recipients: []string{"bob@example.com"},
	}
	doc := NewDocumentFromParsed("case-1", "email", "ref-1", pc)

	require.NotEmpty(t, doc.ID)
	assert.Equal(t, "case-1", doc.CaseID)
	assert.Equal(t, "hello world", doc.Content)
	assert.Equal(t, "email", doc.SourceType)
	assert.Equal(t, "A Letter", doc.Metadata["title"])
	assert.Equal(t, "Jane", doc.Metadata["author"])
	assert.Equal(t, "2025-01-01", doc.Metadata["date"])
	assert.Equal(t, []string{"bob@example.com"}, doc.Metadata["recipients"])
	assert.False(t, doc.HasSignals())
	assert.Nil(t, doc.ProcessedAt)
}

func TestNewDocumentFromParsed_OmitsEmptyOptionalFields(t *testing.T) {
	doc := NewDocumentFromParsed("case-1", "chat_export", "", ParsedContent{Text: "hi"})
	_, hasTitle := doc.Metadata["title"]
	assert.False(t, hasTitle)
}

func TestHasSignals_TracksAttachment(t *testing.T) {
	doc := &Document{}
	assert.False(t, doc.HasSignals())

	doc.Signals = &signals.Signals{}
	assert.True(t, doc.HasSignals())
}
