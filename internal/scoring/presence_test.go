package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

func scored(name string, apt int, score float64) core.CountryRow {
	return core.CountryRow{Country: name, APTGroupCount: apt, RiskScore: core.Float(score)}
}

func TestApplyPresenceMultiplicativeDefaults(t *testing.T) {
	table := core.Table{
		scored("None", 0, 50),
		scored("Few", 2, 50),
		scored("Many", 7, 50),
	}
	out, err := ApplyPresence(table, ModeMultiplicative, "0:0.4,1-4:0.7,5-:1.0")
	require.NoError(t, err)

	assert.InDelta(t, 20.0, *out[0].RiskScore, 1e-9)
	assert.InDelta(t, 35.0, *out[1].RiskScore, 1e-9)
	assert.InDelta(t, 50.0, *out[2].RiskScore, 1e-9)
}

func TestApplyPresenceMultiplicativeSkipsMalformedParts(t *testing.T) {
	table := core.Table{scored("None", 0, 50), scored("Many", 9, 50)}
	out, err := ApplyPresence(table, ModeMultiplicative, "0:0.5,bogus,1-4:xyz")
	require.NoError(t, err)

	// The valid override applies; malformed parts leave defaults intact.
	assert.InDelta(t, 25.0, *out[0].RiskScore, 1e-9)
	assert.InDelta(t, 50.0, *out[1].RiskScore, 1e-9)
}

func TestApplyPresencePercentileCaps(t *testing.T) {
	table := core.Table{
		scored("A", 0, 10),
		scored("B", 0, 90),
		scored("C", 6, 100),
	}
	out, err := ApplyPresence(table, ModePercentile, "0:q50")
	require.NoError(t, err)

	// Median of {10, 90, 100} is 90: the zero-presence outlier is capped,
	// confirmed presence is untouched.
	assert.InDelta(t, 10.0, *out[0].RiskScore, 1e-9)
	assert.InDelta(t, 90.0, *out[1].RiskScore, 1e-9)
	assert.InDelta(t, 100.0, *out[2].RiskScore, 1e-9)
}

func TestApplyPresencePercentileMalformedSpecIsError(t *testing.T) {
	table := core.Table{scored("A", 0, 10)}
	_, err := ApplyPresence(table, ModePercentile, "0:qNaNsense")
	assert.Error(t, err)

	_, err = ApplyPresence(table, ModePercentile, "justabucket")
	assert.Error(t, err)
}

func TestApplyPresenceSkipsUnscoredRows(t *testing.T) {
	table := core.Table{{Country: "Pending", APTGroupCount: 0}}
	out, err := ApplyPresence(table, ModeMultiplicative, "")
	require.NoError(t, err)
	assert.Nil(t, out[0].RiskScore)
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		apt  int
		want string
	}{
		{0, bucketNone},
		{1, bucketFew},
		{4, bucketFew},
		{5, bucketMany},
		{12, bucketMany},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketFor(tt.apt))
	}
}
