package models

import "time"

// InsightType enumerates the kinds of observation Tier 1 can produce.
type InsightType string

// Insight types.
const (
	InsightObservation InsightType = "observation"
	InsightRealisation InsightType = "realisation"
	InsightOpinion     InsightType = "opinion"
	InsightRelational  InsightType = "relational"
	InsightOther       InsightType = "other"
)

// InsightStatus tracks an insight through its lifecycle.
type InsightStatus string

// Insight statuses.
const (
	InsightStatusRaw      InsightStatus = "raw"
	InsightStatusRefined  InsightStatus = "refined"
	InsightStatusSurfaced InsightStatus = "surfaced"
	InsightStatusRejected InsightStatus = "rejected"
	InsightStatusMerged   InsightStatus = "merged"
)

// StringSet is a set of strings, serialised as a sorted JSON array by the
// store layer. Plain map[string]struct{} is avoided at the API boundary so
// callers get a predictable, ordered slice.
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from a slice, deduping as it goes.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// Slice returns the set's members as a sorted slice.
func (s StringSet) Slice() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sortStrings(out)
	return out
}

// Union returns a new set containing members of both sets.
func (s StringSet) Union(other StringSet) StringSet {
	out := make(StringSet, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// Contains reports set membership.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

func sortStrings(s []string) {
	// small insertion sort avoids pulling in "sort" for a handful of tags;
	// themes/emotional_tags/patterns sets are small (single digits to low tens).
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Insight is a single tagged observation extracted by Tier 1, mutable via
// merge-append only (spec.md §3).
type Insight struct {
	ID                 string
	CaseID             string
	RunID              string
	Summary            string
	Themes             StringSet
	EmotionalTags      StringSet
	Patterns           StringSet
	Significance       float64
	Confidence         float64
	InsightType        InsightType
	SourceIDs          StringSet // document ids, non-empty
	Excerpts           []string
	Status             InsightStatus
	PassCount          int
	MergedIntoID       *string
	EarliestSourceDate *time.Time
	LatestSourceDate   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the insight counts toward clustering/synthesis
// input (excludes rejected and merged, per "active_insights_for" in §4.10).
func (i *Insight) IsActive() bool {
	return i.Status != InsightStatusRejected && i.Status != InsightStatusMerged
}

// MeetsQualityFloor reports whether significance/confidence clear the
// configured floors. Rejected insights are exempt (spec.md §3 invariant).
func (i *Insight) MeetsQualityFloor(minSignificance, minConfidence float64) bool {
	if i.Status == InsightStatusRejected {
		return true
	}
	return i.Significance >= minSignificance && i.Confidence >= minConfidence
}
