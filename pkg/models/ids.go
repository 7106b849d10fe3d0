// Package models holds the core data types shared across the recog pipeline:
// documents, insights, patterns, syntheses, entities, cases, and the
// supporting queue/cache/ledger records.
package models

import "github.com/google/uuid"

// NewID generates a new opaque 128-bit identifier.
func NewID() string {
	return uuid.New().String()
}
