package entity

import (
	"testing"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalisedValue_DispatchesByEntityType(t *testing.T) {
	assert.Equal(t, "+15551234567", normalisedValue(models.EntityPhone, "(555) 123-4567"))
	assert.Equal(t, "jane@example.com", normalisedValue(models.EntityEmail, "Jane@Example.com"))
	assert.Equal(t, "john smith", normalisedValue(models.EntityPerson, "John   Smith"))
	assert.Equal(t, "acme corp", normalisedValue(models.EntityOrg, "  Acme Corp "))
}
