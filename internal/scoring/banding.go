package scoring

import (
	"fmt"
	"sort"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

// DefaultQuantiles are the cut-point fractions for the five risk bands.
var DefaultQuantiles = []float64{0.20, 0.50, 0.80, 0.95}

var bandLevels = []core.RiskLevel{core.RiskLow, core.RiskMedium, core.RiskHigh, core.RiskVeryHigh}

// Band assigns a RiskLevel to every row from quantile cut-points over the
// current score distribution. Exactly four ascending fractions are expected
// for the five fixed labels; anything else is a configuration error.
func Band(t core.Table, quantiles []float64) (core.Table, error) {
	if quantiles == nil {
		quantiles = DefaultQuantiles
	}
	if len(quantiles) != len(bandLevels) {
		return nil, fmt.Errorf("banding: expected %d quantiles, got %d", len(bandLevels), len(quantiles))
	}
	qs := append([]float64(nil), quantiles...)
	sort.Float64s(qs)

	out := t.Clone()
	scores := riskScores(out)
	if len(scores) == 0 {
		return out, nil
	}

	cuts := make([]float64, len(qs))
	for i, q := range qs {
		cuts[i] = quantile(scores, q)
	}

	for i := range out {
		if out[i].RiskScore == nil {
			continue
		}
		out[i].RiskLevel = levelFor(*out[i].RiskScore, cuts)
	}
	return out, nil
}

// levelFor is total and monotone: every score maps to exactly one label.
func levelFor(score float64, cuts []float64) core.RiskLevel {
	for i, cut := range cuts {
		if score <= cut {
			return bandLevels[i]
		}
	}
	return core.RiskSevere
}

// quantile computes the linear-interpolated q-quantile of xs.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if q <= 0 {
		return s[0]
	}
	if q >= 1 {
		return s[len(s)-1]
	}
	pos := q * float64(len(s)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(s) {
		return s[lo]
	}
	return s[lo] + (s[lo+1]-s[lo])*frac
}
