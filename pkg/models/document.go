package models

import (
	"time"

	"github.com/brentyJ/recog/pkg/signals"
)

// Document is an immutable unit of ingested text, owned by a Case.
// It becomes immutable once created; the only mutation permitted afterwards
// is attaching Tier 0 Signals exactly once and stamping ProcessedAt.
type Document struct {
	ID          string
	CaseID      string
	Content     string
	SourceType  string // e.g. "chat_export", "pdf", "email", "calendar", "contacts"
	SourceRef   string
	Metadata    map[string]any
	Signals     *signals.Signals // nil until Tier 0 has run
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// HasSignals reports whether Tier 0 has run for this document.
// Invariant I1 depends on this never flipping back to false.
func (d *Document) HasSignals() bool {
	return d.Signals != nil
}

// ParsedContent is the inbound contract from file parsers (out of scope,
// §6 "Parser Input Contract"). The core never parses files itself; parsers
// external to this module build Documents from ParsedContent.
type ParsedContent struct {
	Text       string
	Pages      []string
	Title      string
	Author     string
	Date       string
	Metadata   map[string]any
	Recipients []string
}

// NewDocumentFromParsed constructs a Document from a parser's output. The
// document has no signals yet; the caller runs Tier 0 separately.
func NewDocumentFromParsed(caseID, sourceType, sourceRef string, pc ParsedContent) *Document {
	meta := pc.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if pc.Title != "" {
		meta["title"] = pc.Title
	}
	if pc.Author != "" {
		meta["author"] = pc.Author
	}
	if pc.Date != "" {
		meta["date"] = pc.Date
	}
	if len(pc.Recipients) > 0 {
		meta["recipients"] = pc.Recipients
	}

	return &Document{
		ID:         NewID(),
		CaseID:     caseID,
		Content:    pc.Text,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
}
