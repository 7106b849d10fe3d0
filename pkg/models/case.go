package models

import "time"

// CaseState is one of the legal states in the case lifecycle (spec.md §4.9).
type CaseState string

// Case states.
const (
	CaseUploading  CaseState = "uploading"
	CaseScanning   CaseState = "scanning"
	CaseClarifying CaseState = "clarifying"
	CaseProcessing CaseState = "processing"
	CaseComplete   CaseState = "complete"
	CaseWatching   CaseState = "watching"
)

// Case is the user-visible container grouping documents, insights, patterns,
// syntheses, and a timeline.
type Case struct {
	ID          string
	Title       string
	Description string
	State       CaseState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimelineEvent journals a single state transition.
type TimelineEvent struct {
	ID        string
	CaseID    string
	From      CaseState
	To        CaseState
	Cause     string
	At        time.Time
}

// legalTransitions enumerates the case state machine's legal edges, as the
// single source of truth for I8 (every timeline transition is legal).
var legalTransitions = map[CaseState][]CaseState{
	CaseUploading:  {CaseScanning},
	CaseScanning:   {CaseClarifying, CaseProcessing},
	CaseClarifying: {CaseProcessing},
	CaseProcessing: {CaseComplete},
	CaseComplete:   {CaseWatching},
	CaseWatching:   {CaseScanning},
}

// IsLegalTransition reports whether moving from 'from' to 'to' is permitted.
func IsLegalTransition(from, to CaseState) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TierCounters is a per-tier succeeded/failed counter surfaced to users
// (spec.md §7 "every case exposes ... a per-tier counter").
type TierCounters struct {
	Tier        string
	Succeeded   int
	Failed      int
}

// FailureEntry is a single human-readable failure surfaced on a case.
type FailureEntry struct {
	At      time.Time
	Tier    string
	Message string
}
