// Package scoring implements the multi-criteria risk scorer and the
// post-scoring adjustments: presence rescaling and quantile banding.
package scoring

import (
	"math"
	"sort"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

// MissingPolicy controls how a criterion behaves for rows missing its value.
type MissingPolicy string

const (
	// PolicyDrop zeroes the criterion's weight for rows missing the value.
	PolicyDrop MissingPolicy = "drop"
	// PolicyImpute fills missing values with the column median, or a fixed
	// neutral default when the column is entirely missing.
	PolicyImpute MissingPolicy = "impute"
	// PolicyScale currently behaves identically to PolicyDrop. Whether it
	// should instead rescale weights proportionally is an open question.
	PolicyScale MissingPolicy = "scale"
)

// Weights is the base weight vector, one entry per criterion.
type Weights struct {
	APT     float64
	GCI     float64
	NCSI    float64
	Exploit float64
	Spam    float64
}

// DefaultWeights is used when the supplied vector sums to zero or less.
var DefaultWeights = Weights{APT: 0.5, GCI: 0.2, NCSI: 0.2, Exploit: 0.1, Spam: 0.1}

// Options configures a scoring run.
type Options struct {
	Weights     Weights
	NCSIMissing MissingPolicy
	SpamMissing MissingPolicy
}

const criteria = 5

// Score runs TOPSIS over the merged table and returns a copy with
// RiskScore set on every row (0..100, higher = riskier). All criteria are
// cost-oriented: distance from the ideal-safest corner drives the score up.
func Score(t core.Table, opts Options) core.Table {
	out := t.Clone()
	n := len(out)
	if n == 0 {
		return out
	}

	ncsi := make([]*float64, n)
	spam := make([]*float64, n)
	for i, r := range out {
		ncsi[i] = r.NCSIScore
		spam[i] = r.SpamMagnitude
	}
	if opts.NCSIMissing == PolicyImpute {
		ncsi = imputeMedian(ncsi, 50.0)
	}
	if opts.SpamMissing == PolicyImpute {
		spam = imputeMedian(spam, 0.0)
	}

	// Exploit rank (1 = worst) becomes an ascending-severity score against
	// the worst observed rank. No observed ranks means the criterion drops
	// for everyone.
	maxRank, anyExploit := 0.0, false
	for _, r := range out {
		if r.ExploitRank != nil {
			anyExploit = true
			if *r.ExploitRank > maxRank {
				maxRank = *r.ExploitRank
			}
		}
	}

	// Cost matrix; missing entries contribute 0 to the vector norms.
	crit := make([][criteria]float64, n)
	for i, r := range out {
		crit[i][0] = float64(r.APTGroupCount)
		crit[i][1] = 100.0 - deref(r.GCISum)
		crit[i][2] = 100.0 - deref(ncsi[i])
		if anyExploit && maxRank > 0 && r.ExploitRank != nil {
			crit[i][3] = maxRank - *r.ExploitRank + 1.0
		}
		crit[i][4] = deref(spam[i])
	}

	for j := 0; j < criteria; j++ {
		norm := columnNorm(crit, j)
		for i := range crit {
			crit[i][j] /= norm
		}
	}

	base := [criteria]float64{opts.Weights.APT, opts.Weights.GCI, opts.Weights.NCSI, opts.Weights.Exploit, opts.Weights.Spam}
	if sum(base) <= 0 {
		base = [criteria]float64{DefaultWeights.APT, DefaultWeights.GCI, DefaultWeights.NCSI, DefaultWeights.Exploit, DefaultWeights.Spam}
	}
	s := sum(base)
	for j := range base {
		base[j] /= s
	}

	// Per-row weights: drop criteria whose value is missing under a drop
	// policy. APT and governance always have a usable value and are exempt.
	weights := make([][criteria]float64, n)
	for i := range out {
		w := base
		if (opts.NCSIMissing == PolicyDrop || opts.NCSIMissing == PolicyScale) && ncsi[i] == nil {
			w[2] = 0
		}
		if !anyExploit || out[i].ExploitRank == nil {
			w[3] = 0
		}
		if opts.SpamMissing == PolicyDrop && spam[i] == nil {
			w[4] = 0
		}
		if ws := sum(w); ws > 0 {
			for j := range w {
				w[j] /= ws
			}
		} else {
			// Everything dropped: fall back to uniform weights so the row
			// still scores.
			for j := range w {
				w[j] = 1.0 / criteria
			}
		}
		weights[i] = w
	}

	// Weighted decision matrix and cost ideals (best = min, worst = max).
	weighted := make([][criteria]float64, n)
	var best, worst [criteria]float64
	for j := 0; j < criteria; j++ {
		best[j] = math.Inf(1)
		worst[j] = math.Inf(-1)
	}
	for i := range crit {
		for j := 0; j < criteria; j++ {
			v := crit[i][j] * weights[i][j]
			weighted[i][j] = v
			if v < best[j] {
				best[j] = v
			}
			if v > worst[j] {
				worst[j] = v
			}
		}
	}

	for i := range out {
		dBest, dWorst := 0.0, 0.0
		for j := 0; j < criteria; j++ {
			dBest += (weighted[i][j] - best[j]) * (weighted[i][j] - best[j])
			dWorst += (weighted[i][j] - worst[j]) * (weighted[i][j] - worst[j])
		}
		dBest, dWorst = math.Sqrt(dBest), math.Sqrt(dWorst)
		denom := dBest + dWorst
		if denom == 0 {
			denom = 1
		}
		closeness := dWorst / denom
		out[i].RiskScore = core.Float((1.0 - closeness) * 100.0)
	}
	return out
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func sum(w [criteria]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// columnNorm is the Euclidean norm of a criterion column, degenerating to 1
// so an all-zero column simply contributes nothing.
func columnNorm(crit [][criteria]float64, j int) float64 {
	s := 0.0
	for i := range crit {
		s += crit[i][j] * crit[i][j]
	}
	if n := math.Sqrt(s); n > 0 {
		return n
	}
	return 1.0
}

// imputeMedian fills nil entries with the median of the present values, or
// the fallback when the column is entirely missing.
func imputeMedian(col []*float64, fallback float64) []*float64 {
	var present []float64
	for _, p := range col {
		if p != nil {
			present = append(present, *p)
		}
	}
	fill := fallback
	if len(present) > 0 {
		fill = median(present)
	}
	out := make([]*float64, len(col))
	for i, p := range col {
		if p != nil {
			out[i] = p
		} else {
			out[i] = core.Float(fill)
		}
	}
	return out
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
