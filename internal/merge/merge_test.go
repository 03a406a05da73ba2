package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/sources"
)

func TestNormalizeISO2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gb", "GB"},
		{" fr ", "FR"},
		{"UK", "GB"},
		{"EL", "GR"},
		{"KO", "XK"},
		{"GBR", "GB"},
		{"USA", "US"},
		{"ZZZ", "ZZZ"}, // unknown Alpha-3 passes through
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeISO2(tt.in), "NormalizeISO2(%q)", tt.in)
	}
}

func baseTable() core.Table {
	return core.Table{
		{Country: "United Kingdom", ISO2: "UK"},
		{Country: "France", ISO2: "FR", SpamMagnitude: core.Float(2.5)},
		{Country: "Côte d’Ivoire", ISO2: ""},
	}
}

func TestNCSIFillsByNormalizedName(t *testing.T) {
	base := core.Table{
		{Country: "United Kingdom", ISO2: "GB"},
		{Country: "France", ISO2: "FR", NCSIScore: core.Float(77.0)},
	}
	rows := []sources.NCSIRow{
		{Country: "UNITED  KINGDOM", Score: 89.61},
		{Country: "France", Score: 12.0}, // must not overwrite the baseline
		{Country: "Atlantis", Score: 50.0},
	}

	out := NCSI(base, rows)
	require.Len(t, out, 2, "merge must not add or drop rows")

	require.NotNil(t, out[0].NCSIScore)
	assert.Equal(t, 89.61, *out[0].NCSIScore)
	assert.Equal(t, 77.0, *out[1].NCSIScore, "existing value overwritten")
	assert.Nil(t, base[0].NCSIScore, "input mutated")
}

func TestNCSIDuplicateIndexRowsKeepFirst(t *testing.T) {
	base := core.Table{{Country: "France", ISO2: "FR"}}
	rows := []sources.NCSIRow{
		{Country: "France", Score: 80},
		{Country: "france", Score: 10},
	}
	out := NCSI(base, rows)
	require.NotNil(t, out[0].NCSIScore)
	assert.Equal(t, 80.0, *out[0].NCSIScore)
}

func TestSpamMergeFallbackChain(t *testing.T) {
	base := baseTable()
	aliases := identity.AliasMap{"cote divoire": "ci"}
	rows := []sources.SpamRow{
		{ISO2: "GB", Country: "United Kingdom", Magnitude: 7.1},
		{ISO2: "FR", Country: "France", Magnitude: 9.9},
		{ISO2: "CI", Country: "Ivory Coast", Magnitude: 4.2},
	}

	out := Spam(base, rows, aliases)
	require.Len(t, out, 3)

	// UK folds to GB and joins on code.
	assert.Equal(t, "GB", out[0].ISO2)
	require.NotNil(t, out[0].SpamMagnitude)
	assert.Equal(t, 7.1, *out[0].SpamMagnitude)

	// France already has a value; the feed must not overwrite it.
	assert.Equal(t, 2.5, *out[1].SpamMagnitude)

	// Ivory Coast joins through the alias map.
	require.NotNil(t, out[2].SpamMagnitude)
	assert.Equal(t, 4.2, *out[2].SpamMagnitude)
}

func TestSpamMergeNameFallback(t *testing.T) {
	base := core.Table{{Country: "Moldova, Republic of", ISO2: ""}}
	rows := []sources.SpamRow{{ISO2: "", Country: "MOLDOVA  REPUBLIC OF", Magnitude: 3.3}}
	out := Spam(base, rows, nil)
	require.NotNil(t, out[0].SpamMagnitude)
	assert.Equal(t, 3.3, *out[0].SpamMagnitude)
}

func TestExploitsMerge(t *testing.T) {
	base := baseTable()
	aliases := identity.AliasMap{"cote divoire": "CI"}
	ten := 10
	rows := []sources.ExploitRow{
		{ISO2: "GB", Rank: 3, TotalToday: &ten},
		{ISO2: "CI", Rank: 17},
	}

	out := Exploits(base, rows, aliases)
	require.NotNil(t, out[0].ExploitRank)
	assert.Equal(t, 3.0, *out[0].ExploitRank)
	require.NotNil(t, out[0].ExploitTotalToday)
	assert.Equal(t, 10.0, *out[0].ExploitTotalToday)

	assert.Nil(t, out[1].ExploitRank, "France has no feed row")

	require.NotNil(t, out[2].ExploitRank)
	assert.Equal(t, 17.0, *out[2].ExploitRank)
	assert.Nil(t, out[2].ExploitTotalToday)
}

func TestExploitsMergeKeepsExistingRank(t *testing.T) {
	base := core.Table{{Country: "France", ISO2: "FR", ExploitRank: core.Float(1)}}
	rows := []sources.ExploitRow{{ISO2: "FR", Rank: 99}}
	out := Exploits(base, rows, nil)
	assert.Equal(t, 1.0, *out[0].ExploitRank)
}

func TestMergeEmptyFeedLeavesTableIntact(t *testing.T) {
	base := baseTable()
	out := Spam(base, nil, nil)
	require.Len(t, out, 3)
	assert.Equal(t, "GB", out[0].ISO2, "codes still normalized")
	assert.Nil(t, out[0].SpamMagnitude)
}
