package models

import "time"

// QueueKind enumerates the tiers dispatched through the durable queue.
type QueueKind string

// Queue kinds.
const (
	QueueExtract    QueueKind = "extract"
	QueueCorrelate  QueueKind = "correlate"
	QueueSynthesize QueueKind = "synthesize"
	QueueCritique   QueueKind = "critique"
)

// QueueStatus enumerates a queue item's lifecycle.
type QueueStatus string

// Queue item statuses.
const (
	QueueStatusQueued QueueStatus = "queued"
	QueueStatusLeased QueueStatus = "leased"
	QueueStatusDone   QueueStatus = "done"
	QueueStatusFailed QueueStatus = "failed"
)

// QueueItem is a durable unit of work.
type QueueItem struct {
	ID            string
	CaseID        *string
	Kind          QueueKind
	Payload       map[string]any
	Attempts      int
	EnqueuedAt    time.Time
	NextVisibleAt time.Time
	Status        QueueStatus
	LeaseToken    *string
	LeasedUntil   *time.Time
}

// ProcessingState is a per-run progress snapshot enabling resumability.
type ProcessingState struct {
	RunID           string
	CaseID          string
	DocumentsTotal  int
	DocumentsDone   int
	InsightsCreated int
	PatternsCreated int
	UpdatedAt       time.Time
}
