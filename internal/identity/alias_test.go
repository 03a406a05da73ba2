package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAliasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alias.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAliases(t *testing.T) {
	path := writeAliasFile(t, `# country aliases
uk=GB
Great Britain = gb

holland=NL
bogus line without separator
=XX
empty=
`)
	m, err := LoadAliases(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 3 {
		t.Fatalf("len = %d, want 3", len(m))
	}

	tests := []struct {
		alias string
		want  string
	}{
		{"uk", "GB"},
		{"UK", "GB"},
		{"great britain", "GB"},
		{" Holland ", "NL"},
	}
	for _, tt := range tests {
		got, ok := m.Lookup(tt.alias)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %q, %v; want %q, true", tt.alias, got, ok, tt.want)
		}
	}
	if _, ok := m.Lookup("france"); ok {
		t.Error("Lookup(france) should miss")
	}
}

func TestLoadAliasesLastWins(t *testing.T) {
	path := writeAliasFile(t, "burma=MM\nburma=TH\n")
	m, err := LoadAliases(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Lookup("burma"); got != "TH" {
		t.Errorf("Lookup(burma) = %q, want TH", got)
	}
}

func TestLoadAliasesMissingFile(t *testing.T) {
	m, err := LoadAliases(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("len = %d, want 0", len(m))
	}
}

func TestLookupNormalized(t *testing.T) {
	path := writeAliasFile(t, "cote divoire=CI\n")
	m, err := LoadAliases(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := m.LookupNormalized("Côte d’Ivoire"); !ok || got != "CI" {
		t.Errorf("LookupNormalized = %q, %v; want CI, true", got, ok)
	}
}
