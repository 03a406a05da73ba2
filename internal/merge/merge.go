package merge

import (
	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/sources"
)

// NCSI fills missing NCSI scores by exact normalized-name match against the
// index rows. Baseline values already present are kept.
func NCSI(base core.Table, rows []sources.NCSIRow) core.Table {
	out := base.Clone()
	if len(rows) == 0 {
		return out
	}

	byName := make(map[string]float64, len(rows))
	for _, r := range rows {
		key := identity.Normalize(r.Country)
		if key == "" {
			continue
		}
		if _, dup := byName[key]; !dup {
			byName[key] = r.Score
		}
	}

	for i := range out {
		if out[i].NCSIScore != nil {
			continue
		}
		if v, ok := byName[identity.Normalize(out[i].Country)]; ok {
			out[i].NCSIScore = core.Float(v)
		}
	}
	return out
}

// Spam fills missing spam magnitudes using the three-tier fallback:
// strict code match, alias-mediated code match on the baseline country
// name, then exact normalized-name match. Token-overlap matching is a
// search-only device and is never used here.
func Spam(base core.Table, rows []sources.SpamRow, aliases identity.AliasMap) core.Table {
	out := normalizeCodes(base)
	if len(rows) == 0 {
		return out
	}

	byCode := make(map[string]float64, len(rows))
	byName := make(map[string]float64, len(rows))
	for _, r := range rows {
		if code := NormalizeISO2(r.ISO2); code != "" {
			if _, dup := byCode[code]; !dup {
				byCode[code] = r.Magnitude
			}
		}
		if key := identity.Normalize(r.Country); key != "" {
			if _, dup := byName[key]; !dup {
				byName[key] = r.Magnitude
			}
		}
	}

	for i := range out {
		if out[i].SpamMagnitude != nil {
			continue
		}
		if v, ok := byCode[out[i].ISO2]; ok {
			out[i].SpamMagnitude = core.Float(v)
			continue
		}
		if code, ok := aliasCode(aliases, out[i].Country); ok {
			if v, ok := byCode[code]; ok {
				out[i].SpamMagnitude = core.Float(v)
				continue
			}
		}
		if v, ok := byName[identity.Normalize(out[i].Country)]; ok {
			out[i].SpamMagnitude = core.Float(v)
		}
	}
	return out
}

// Exploits fills missing exploit rank and total-today counts: strict code
// match first, then alias-mediated code match.
func Exploits(base core.Table, rows []sources.ExploitRow, aliases identity.AliasMap) core.Table {
	out := normalizeCodes(base)
	if len(rows) == 0 {
		return out
	}

	byCode := make(map[string]sources.ExploitRow, len(rows))
	for _, r := range rows {
		code := NormalizeISO2(r.ISO2)
		if code == "" {
			continue
		}
		if _, dup := byCode[code]; !dup {
			byCode[code] = r
		}
	}

	for i := range out {
		if out[i].ExploitRank != nil {
			continue
		}
		r, ok := byCode[out[i].ISO2]
		if !ok {
			if code, aliased := aliasCode(aliases, out[i].Country); aliased {
				r, ok = byCode[code]
			}
		}
		if !ok {
			continue
		}
		out[i].ExploitRank = core.Float(float64(r.Rank))
		if out[i].ExploitTotalToday == nil && r.TotalToday != nil {
			out[i].ExploitTotalToday = core.Float(float64(*r.TotalToday))
		}
	}
	return out
}

// normalizeCodes clones the baseline and folds its ISO2 values through the
// fixup table so all joins see canonical codes.
func normalizeCodes(base core.Table) core.Table {
	out := base.Clone()
	for i := range out {
		out[i].ISO2 = NormalizeISO2(out[i].ISO2)
	}
	return out
}

// aliasCode maps a baseline country name to an ISO2 code through the alias
// map, applying the same fixups as every other code on the way in.
func aliasCode(aliases identity.AliasMap, name string) (string, bool) {
	if aliases == nil {
		return "", false
	}
	code, ok := aliases.LookupNormalized(name)
	if !ok {
		return "", false
	}
	return NormalizeISO2(code), true
}
