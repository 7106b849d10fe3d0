package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateFor_ExactModelMatch(t *testing.T) {
	r := RateFor("gpt-4o-mini")
	assert.Equal(t, table["gpt-4o-mini"], r)
}

func TestRateFor_DatedAliasMatchesPrefix(t *testing.T) {
	r := RateFor("claude-sonnet-4-20250514")
	assert.Equal(t, table["claude-sonnet-4"], r)
}

func TestRateFor_UnknownModelFallsBack(t *testing.T) {
	r := RateFor("some-future-model-nobody-has-priced")
	assert.Equal(t, fallback, r)
}

func TestEstimate_ComputesWeightedCost(t *testing.T) {
	cost := Estimate("gpt-4o-mini", 1000, 1000)
	expected := table["gpt-4o-mini"].InputCentsPer1K + table["gpt-4o-mini"].OutputCentsPer1K
	assert.InDelta(t, expected, cost, 1e-9)
}

func TestEstimate_ZeroTokensIsZeroCost(t *testing.T) {
	assert.Zero(t, Estimate("gpt-4o", 0, 0))
}
