// Package identity reconciles country identities across sources that
// disagree on spelling, diacritics, codes, and aliases.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parenRE      = regexp.MustCompile(`\(.*?\)`)
	apostropheRE = regexp.MustCompile("[’'`]")
	dashCommaRE  = regexp.MustCompile(`[-,]`)
	spaceRE      = regexp.MustCompile(`\s+`)
)

// stripMarks builds the diacritic-stripping transformer. x/text transformer
// chains carry internal buffers and are not safe for concurrent use, so each
// call gets its own; construction is cheap.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
}

// CleanName strips parenthesized notes and zero-width characters, drops
// diacritics and apostrophe variants, folds hyphens/commas to spaces and
// collapses whitespace, keeping the original casing. Scrapers use it to
// tidy display names.
func CleanName(name string) string {
	s := parenRE.ReplaceAllString(name, "")
	s = strings.ReplaceAll(s, "​", " ")
	s = strings.TrimSpace(s)
	if out, _, err := transform.String(stripMarks(), s); err == nil {
		s = out
	}
	s = apostropheRE.ReplaceAllString(s, "")
	s = dashCommaRE.ReplaceAllString(s, " ")
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize canonicalizes a free-text country name for comparison: CleanName
// plus lower-casing. It is the single point of truth for "same country name"
// comparisons; it never fails and is idempotent.
func Normalize(name string) string {
	return strings.ToLower(CleanName(name))
}

// TokenSet splits a normalized name into its word set for overlap checks.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Normalize(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// TokensOverlap reports whether the two names share at least one word
// after normalization.
func TokensOverlap(a, b string) bool {
	as := TokenSet(a)
	if len(as) == 0 {
		return true
	}
	for tok := range TokenSet(b) {
		if _, ok := as[tok]; ok {
			return true
		}
	}
	return false
}
