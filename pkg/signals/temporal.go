package signals

import "regexp"

var (
	pastMarkers     = regexp.MustCompile(`(?i)\b(was|were|had|did|used to|yesterday|last (week|month|year)|ago)\b`)
	futureMarkers   = regexp.MustCompile(`(?i)\b(will|going to|gonna|tomorrow|next (week|month|year)|soon|plan to)\b`)
	habitualMarkers = regexp.MustCompile(`(?i)\b(always|usually|every (day|week|month|time)|often|normally|typically)\b`)
	presentMarkers  = regexp.MustCompile(`(?i)\b(am|is|are|right now|currently|today)\b`)

	dateLiteralRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(st|nd|rd|th)?(,?\s*\d{4})?)\b`)
	timeLiteralRe  = regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(am|pm|AM|PM)?\b`)
)

// computeTemporal buckets references into past/present/future/habitual and
// extracts literal date/time strings found in text.
func computeTemporal(text string) (map[TemporalBucket]int, []string) {
	counts := map[TemporalBucket]int{
		TemporalPast:     len(pastMarkers.FindAllString(text, -1)),
		TemporalPresent:  len(presentMarkers.FindAllString(text, -1)),
		TemporalFuture:   len(futureMarkers.FindAllString(text, -1)),
		TemporalHabitual: len(habitualMarkers.FindAllString(text, -1)),
	}
	for k, v := range counts {
		if v == 0 {
			delete(counts, k)
		}
	}

	var literals []string
	literals = append(literals, dateLiteralRe.FindAllString(text, -1)...)
	literals = append(literals, timeLiteralRe.FindAllString(text, -1)...)

	return counts, literals
}
