package models

import "time"

// EntityType enumerates canonical entity kinds.
type EntityType string

// Entity types.
const (
	EntityPerson EntityType = "person"
	EntityPlace  EntityType = "place"
	EntityOrg    EntityType = "org"
	EntityPhone  EntityType = "phone"
	EntityEmail  EntityType = "email"
)

// ConfidenceBand coarsens a numeric confidence for entity display.
type ConfidenceBand string

// Confidence bands.
const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// Entity is a canonical identity for a person/place/org/phone/email.
type Entity struct {
	ID               string
	EntityType       EntityType
	RawValue         string
	NormalisedValue  string
	DisplayName      string
	MergedIntoID     *string
	ConfidenceBand   ConfidenceBand
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BlocklistEntry records a rejected entity candidate, keyed by
// (normalised_value, entity_type).
type BlocklistEntry struct {
	NormalisedValue string
	EntityType      EntityType
	RejectionCount  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Relationship is a directed, weighted multi-edge between two entities.
type Relationship struct {
	FromID       string
	ToID         string
	RelationType string
	Weight       int
	FirstSeen    time.Time
	LastSeen     time.Time
}
