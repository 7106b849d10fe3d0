// Package cost estimates and prices LLM calls against a static per-model
// rate table, supplementing the distilled spec with the pre-call cost
// estimation the original engine offered for user confirmation before
// expensive extraction/synthesis runs.
package cost

import "strings"

// Rate is the price of one model, in cents per 1,000 tokens.
type Rate struct {
	InputCentsPer1K  float64
	OutputCentsPer1K float64
}

// table is a static, hand-maintained price list. New models are added here;
// an unknown model falls back to a conservative default rate rather than
// erroring, since a missing entry shouldn't block extraction.
var table = map[string]Rate{
	"claude-opus-4":        {InputCentsPer1K: 1.5, OutputCentsPer1K: 7.5},
	"claude-sonnet-4":      {InputCentsPer1K: 0.3, OutputCentsPer1K: 1.5},
	"claude-3-5-haiku":     {InputCentsPer1K: 0.08, OutputCentsPer1K: 0.4},
	"gpt-4o":               {InputCentsPer1K: 0.25, OutputCentsPer1K: 1.0},
	"gpt-4o-mini":          {InputCentsPer1K: 0.015, OutputCentsPer1K: 0.06},
	"gemini-1.5-pro":       {InputCentsPer1K: 0.125, OutputCentsPer1K: 0.5},
	"gemini-1.5-flash":     {InputCentsPer1K: 0.0075, OutputCentsPer1K: 0.03},
}

var fallback = Rate{InputCentsPer1K: 0.3, OutputCentsPer1K: 1.5}

// RateFor returns the price table entry for model, matching on a prefix so
// dated model aliases (e.g. "claude-sonnet-4-20250514") resolve correctly.
// The longest matching prefix wins, so "gpt-4o-mini" is not priced as "gpt-4o".
func RateFor(model string) Rate {
	best, bestLen := fallback, 0
	for name, r := range table {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			best, bestLen = r, len(name)
		}
	}
	return best
}

// Estimate computes the cost in cents of a call with the given token counts.
func Estimate(model string, promptTokens, completionTokens int) float64 {
	r := RateFor(model)
	return float64(promptTokens)/1000*r.InputCentsPer1K + float64(completionTokens)/1000*r.OutputCentsPer1K
}
