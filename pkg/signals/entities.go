package signals

import "regexp"

var (
	// A conservative "full name" pattern: two or three capitalised tokens.
	// Unknown/lowercase tokens never match, per the "unknown tokens do not
	// produce entities" contract in spec.md §4.1.
	personRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+){1,2}\b`)

	phoneRe = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	locationRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)*,\s[A-Z]{2})\b`)

	orgSuffixRe = regexp.MustCompile(`\b[A-Z][A-Za-z&]*(?:\s[A-Z][A-Za-z&]*)*\s(Inc|LLC|Ltd|Corp|Corporation|Company|Co)\.?\b`)

	currencyRe = regexp.MustCompile(`[$€£]\s?\d[\d,]*(\.\d{1,2})?|\b\d[\d,]*(\.\d{1,2})?\s?(USD|EUR|GBP|dollars)\b`)
)

// computeEntities extracts entity candidates with closed-form regexes.
// These are raw, uncanonicalised strings; Tier 1 and the critique stage
// resolve them into the entity registry (C2) via entity.ResolveDocumentEntities.
func computeEntities(text string) Entities {
	return Entities{
		People:        dedupe(personRe.FindAllString(text, -1)),
		Phones:        dedupe(phoneRe.FindAllString(text, -1)),
		Emails:        dedupe(emailRe.FindAllString(text, -1)),
		Locations:     dedupe(locationRe.FindAllString(text, -1)),
		Organisations: dedupe(orgSuffixRe.FindAllString(text, -1)),
		Currency:      dedupe(currencyRe.FindAllString(text, -1)),
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
