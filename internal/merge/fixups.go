// Package merge joins secondary per-country datasets into the baseline
// table with a deterministic fallback chain. Merges only ever fill missing
// values; they never duplicate, drop, or overwrite baseline data.
package merge

import (
	"strings"

	"github.com/biter777/countries"
)

// iso2Fixups folds known legacy or non-standard two-letter codes seen in
// the wild to their current ISO 3166-1 Alpha-2 form.
var iso2Fixups = map[string]string{
	"UK": "GB", // United Kingdom
	"EL": "GR", // Greece, as used in EU contexts
	"KO": "XK", // Kosovo
}

// NormalizeISO2 upper-cases and trims a country code, applies the fixup
// table, and folds Alpha-3 codes to Alpha-2. Unknown codes pass through
// unchanged so that missingness stays visible downstream.
func NormalizeISO2(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if fixed, ok := iso2Fixups[c]; ok {
		return fixed
	}
	if len(c) == 3 {
		if cc := countries.ByName(c); cc != countries.Unknown {
			return cc.Alpha2()
		}
	}
	return c
}
