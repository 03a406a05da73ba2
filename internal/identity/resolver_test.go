package identity

import "testing"

func testEntries() []Entry {
	return []Entry{
		{Name: "United Kingdom", ISO2: "GB"},
		{Name: "United States", ISO2: "US"},
		{Name: "Nigeria", ISO2: "NG"},
		{Name: "France", ISO2: "FR"},
		{Name: "Korea, Republic of", ISO2: "KR"},
	}
}

func TestResolveExactCode(t *testing.T) {
	r := NewResolver(testEntries(), nil)
	name, idx := r.Resolve("gb")
	if name != "United Kingdom" || len(idx) != 1 || idx[0] != 0 {
		t.Errorf("Resolve(gb) = %q, %v", name, idx)
	}
}

func TestResolveAlias(t *testing.T) {
	aliases := AliasMap{"south korea": "KR"}
	r := NewResolver(testEntries(), aliases)
	name, idx := r.Resolve("South Korea")
	if name != "Korea, Republic of" || len(idx) != 1 || idx[0] != 4 {
		t.Errorf("Resolve(South Korea) = %q, %v", name, idx)
	}
}

func TestResolveExactNormalizedName(t *testing.T) {
	r := NewResolver(testEntries(), nil)
	name, idx := r.Resolve("  UNITED  KINGDOM ")
	if name != "United Kingdom" || len(idx) != 1 {
		t.Errorf("Resolve = %q, %v", name, idx)
	}
}

func TestResolveApproximateName(t *testing.T) {
	r := NewResolver(testEntries(), nil)

	name, idx := r.Resolve("Nigera")
	if name != "Nigeria" || len(idx) != 1 {
		t.Errorf("Resolve(Nigera) = %q, %v; want Nigeria", name, idx)
	}

	name, _ = r.Resolve("United Kingdom of Great Britain")
	if name != "United Kingdom" {
		t.Errorf("Resolve(long form) = %q, want United Kingdom", name)
	}
}

func TestResolveMissReturnsQuery(t *testing.T) {
	r := NewResolver(testEntries(), nil)
	name, idx := r.Resolve("Atlantis")
	if name != "Atlantis" || idx != nil {
		t.Errorf("Resolve(Atlantis) = %q, %v; want query back with no matches", name, idx)
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	r := NewResolver(testEntries(), nil)
	name, idx := r.Resolve("   ")
	if idx != nil {
		t.Errorf("Resolve(blank) matched %q, %v", name, idx)
	}
}

func TestResolveTieKeepsFirstOccurrence(t *testing.T) {
	entries := []Entry{
		{Name: "Testonia", ISO2: "T1"},
		{Name: "Testonia", ISO2: "T2"},
	}
	r := NewResolver(entries, nil)
	name, idx := r.Resolve("Testonia")
	if name != "Testonia" || len(idx) != 2 {
		t.Errorf("Resolve = %q, %v; want both rows", name, idx)
	}
}

func TestResolveCached(t *testing.T) {
	r := NewResolver(testEntries(), nil)
	first, _ := r.Resolve("Nigera")
	second, _ := r.Resolve("Nigera")
	if first != second {
		t.Errorf("cached resolve differs: %q vs %q", first, second)
	}
}
