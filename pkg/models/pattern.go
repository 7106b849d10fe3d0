package models

import "time"

// PatternType enumerates the kinds of aggregate Tier 2 can produce.
type PatternType string

// Pattern types.
const (
	PatternCognitive   PatternType = "cognitive"
	PatternEmotional   PatternType = "emotional"
	PatternRelational  PatternType = "relational"
	PatternTransitional PatternType = "transitional"
	PatternOther       PatternType = "other"
)

// Pattern is a named aggregate over insights, produced by Tier 2.
type Pattern struct {
	ID          string
	RunID       string
	CaseID      string
	Name        string
	Summary     string
	Description string
	PatternType PatternType
	InsightIDs  StringSet // size >= synthesis_min_patterns is enforced at creation
	Strength    float64
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Synthesis is a higher-order narrative over patterns, produced by Tier 3.
type Synthesis struct {
	ID            string
	CaseID        string
	Summary       string
	SynthesisType string
	PatternIDs    StringSet
	Significance  float64
	Confidence    float64
	Metadata      map[string]any
	CreatedAt     time.Time
}
