// Package search filters the scored table by free-text, comma-separated
// terms and produces closest-match suggestions when nothing hits.
package search

import (
	"strings"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
)

// ParseTerms splits a comma-separated search string, dropping empties.
func ParseTerms(s string) []string {
	var terms []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// BuildMask marks the rows matched by any term. A term matches a row when
// it appears case-insensitively in the country name, equals the ISO2 code,
// resolves to the code through the alias map, or shares a word with the
// normalized country name. With no terms every row matches.
func BuildMask(t core.Table, terms []string, aliases identity.AliasMap) []bool {
	mask := make([]bool, len(t))
	if len(terms) == 0 {
		for i := range mask {
			mask[i] = true
		}
		return mask
	}

	for _, raw := range terms {
		q := strings.TrimSpace(raw)
		if q == "" {
			continue
		}

		var codeQ string
		if len(q) == 2 {
			codeQ = strings.ToUpper(q)
		}
		var aliasCode string
		if aliases != nil {
			if c, ok := aliases.LookupNormalized(q); ok {
				aliasCode = strings.ToUpper(c)
			}
		}
		lowerQ := strings.ToLower(q)

		for i, row := range t {
			if mask[i] {
				continue
			}
			switch {
			case strings.Contains(strings.ToLower(row.Country), lowerQ):
				mask[i] = true
			case codeQ != "" && strings.ToUpper(row.ISO2) == codeQ:
				mask[i] = true
			case aliasCode != "" && strings.ToUpper(row.ISO2) == aliasCode:
				mask[i] = true
			case identity.TokensOverlap(q, row.Country):
				mask[i] = true
			}
		}
	}
	return mask
}

// Filter applies a mask, keeping table order.
func Filter(t core.Table, mask []bool) core.Table {
	var out core.Table
	for i, keep := range mask {
		if keep {
			out = append(out, t[i])
		}
	}
	return out
}

// Suggest resolves each term against the unfiltered table through the
// approximate-match machinery and returns the de-duplicated best-match
// names in term order. An empty result means not even a fuzzy candidate
// exists.
func Suggest(t core.Table, terms []string, aliases identity.AliasMap) []string {
	entries := make([]identity.Entry, len(t))
	for i, r := range t {
		entries[i] = identity.Entry{Name: r.Country, ISO2: r.ISO2}
	}
	resolver := identity.NewResolver(entries, aliases)

	var out []string
	seen := make(map[string]struct{})
	for _, raw := range terms {
		q := strings.TrimSpace(raw)
		if q == "" {
			continue
		}
		name, matches := resolver.Resolve(q)
		if len(matches) == 0 {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
