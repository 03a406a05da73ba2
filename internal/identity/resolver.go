package identity

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SimilarityThreshold is the minimum similarity ratio for an approximate
// match. Sørensen–Dice over bigrams approximates the matching-run ratio of
// classic sequence matchers and works well on short country names.
const SimilarityThreshold = 0.6

const (
	resolverCacheSize = 1024
	resolverCacheTTL  = 0 // entries live for the resolver's lifetime
)

// Entry is one reference row the resolver matches against.
type Entry struct {
	Name string
	ISO2 string
}

// Resolver resolves free-text queries to a canonical (name, code) identity
// against a fixed reference table. Resolution is deterministic: exact code,
// exact normalized name, approximate name, approximate code, in that order,
// with ties broken by first occurrence in table order.
type Resolver struct {
	entries []Entry
	aliases AliasMap
	metric  *metrics.SorensenDice
	cache   *expirable.LRU[string, string]
}

// NewResolver builds a resolver over the reference entries. The alias map
// may be nil.
func NewResolver(entries []Entry, aliases AliasMap) *Resolver {
	return &Resolver{
		entries: entries,
		aliases: aliases,
		metric:  metrics.NewSorensenDice(),
		cache:   expirable.NewLRU[string, string](resolverCacheSize, nil, resolverCacheTTL),
	}
}

// Resolve maps a query to a canonical country name and the indices of the
// matching reference rows. A miss is not an error: the original query comes
// back with an empty index set and callers decide how to react.
func (r *Resolver) Resolve(query string) (string, []int) {
	q := strings.TrimSpace(query)
	if q == "" {
		return query, nil
	}

	if canonical, ok := r.cache.Get(q); ok {
		return r.collect(canonical, q)
	}
	canonical := r.resolve(q)
	r.cache.Add(q, canonical)
	return r.collect(canonical, q)
}

func (r *Resolver) resolve(q string) string {
	// 1) Exact ISO2 code.
	if len(q) == 2 {
		code := strings.ToUpper(q)
		for _, e := range r.entries {
			if e.ISO2 == code {
				return e.Name
			}
		}
	}

	// 2) Alias hit mapping straight to a code.
	if r.aliases != nil {
		if code, ok := r.aliases.LookupNormalized(q); ok {
			for _, e := range r.entries {
				if e.ISO2 == code {
					return e.Name
				}
			}
		}
	}

	// 3) Exact normalized-name match.
	nq := Normalize(q)
	for _, e := range r.entries {
		if Normalize(e.Name) == nq {
			return e.Name
		}
	}

	// 4) Approximate match on distinct country names; first occurrence wins
	// ties because only a strictly better score replaces the candidate.
	lower := strings.ToLower(q)
	best, bestScore := "", 0.0
	seen := make(map[string]struct{}, len(r.entries))
	for _, e := range r.entries {
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		score := strutil.Similarity(lower, strings.ToLower(e.Name), r.metric)
		if score > bestScore {
			best, bestScore = e.Name, score
		}
	}
	if bestScore >= SimilarityThreshold {
		return best
	}

	// 5) Last resort: approximate match on the codes themselves.
	upper := strings.ToUpper(q)
	best, bestScore = "", 0.0
	for _, e := range r.entries {
		score := strutil.Similarity(upper, e.ISO2, r.metric)
		if score > bestScore {
			best, bestScore = e.Name, score
		}
	}
	if bestScore >= SimilarityThreshold {
		return best
	}

	return ""
}

// collect maps a canonical name back to reference row indices. An empty
// canonical means no match: the original query is surfaced instead.
func (r *Resolver) collect(canonical, query string) (string, []int) {
	if canonical == "" {
		return query, nil
	}
	var idx []int
	for i, e := range r.entries {
		if e.Name == canonical {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return query, nil
	}
	return canonical, idx
}
