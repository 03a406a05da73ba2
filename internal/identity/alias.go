package identity

import (
	"bufio"
	"os"
	"sort"
	"strings"
)

// AliasMap maps an alternate country spelling to its upper-case ISO2 code.
// Keys are case-folded and trimmed; for duplicate keys the last definition
// wins. The map is built once per run and read-only afterward.
type AliasMap map[string]string

// LoadAliases reads an alias file with one `alias=CODE` entry per line.
// Lines starting with '#' and blank lines are ignored. A missing file is
// not an error: aliasing is optional enrichment, so it yields an empty map.
func LoadAliases(path string) (AliasMap, error) {
	m := make(AliasMap)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToUpper(strings.TrimSpace(val))
		if key == "" || val == "" {
			continue
		}
		m[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// SortedKeys returns the alias keys in lexical order for stable listings.
func (m AliasMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves an alias to an ISO2 code, case-insensitively.
func (m AliasMap) Lookup(alias string) (string, bool) {
	code, ok := m[strings.ToLower(strings.TrimSpace(alias))]
	return code, ok
}

// LookupNormalized resolves a fully normalized country name. Alias keys are
// stored case-folded only, so both the raw fold and the normalized form are
// tried.
func (m AliasMap) LookupNormalized(name string) (string, bool) {
	if code, ok := m.Lookup(name); ok {
		return code, true
	}
	code, ok := m[Normalize(name)]
	return code, ok
}
