// Package entity implements the canonical entity registry and relationship
// graph: normalisation, blocklisting, optional LLM validation, merge, and
// neighbourhood/co-occurrence/sentiment-over-time queries over the graph.
package entity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalise lowercases, squeezes whitespace, and folds diacritics, so two
// spellings of the same name collapse to one (entity_type, normalised_value)
// key.
func Normalise(raw string) string {
	folded := foldDiacritics(strings.ToLower(strings.TrimSpace(raw)))
	return whitespaceRe.ReplaceAllString(folded, " ")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

var digitsRe = regexp.MustCompile(`\d+`)

// NormalisePhone converts a phone number to E.164 where possible. It is a
// best-effort heuristic, not a full libphonenumber port: it assumes a
// US/international-style number when no leading '+' is present and at least
// 10 digits are found, and otherwise returns the input with surrounding
// whitespace trimmed.
func NormalisePhone(raw string) string {
	digits := strings.Join(digitsRe.FindAllString(raw, -1), "")
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + digits
	}
	switch len(digits) {
	case 10:
		return "+1" + digits
	case 11:
		if strings.HasPrefix(digits, "1") {
			return "+" + digits
		}
	}
	if len(digits) >= 10 {
		return "+" + digits
	}
	return strings.TrimSpace(raw)
}

// NormaliseEmail lowercases and trims an email address.
func NormaliseEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
