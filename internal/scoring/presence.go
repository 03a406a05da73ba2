package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

// PresenceMode selects how the presence adjustment is applied.
type PresenceMode string

const (
	// ModeMultiplicative multiplies each row's score by its bucket factor.
	ModeMultiplicative PresenceMode = "multiplicative"
	// ModePercentile caps each row's score at a percentile of the current
	// score distribution.
	ModePercentile PresenceMode = "percentile"
)

// Presence buckets keyed by attributed threat-actor group count.
const (
	bucketNone = "0"
	bucketFew  = "1-4"
	bucketMany = "5-"
)

// DefaultBucketFactors are the multiplicative defaults: absence of detected
// groups compresses the score, confirmed presence keeps it.
var DefaultBucketFactors = map[string]float64{
	bucketNone: 0.4,
	bucketFew:  0.7,
	bucketMany: 1.0,
}

// ApplyPresence rescales risk scores by APT-group-count bucket. The spec
// string is a comma-separated list of bucket:value pairs; unspecified
// buckets keep their defaults in multiplicative mode and apply no cap in
// percentile mode.
func ApplyPresence(t core.Table, mode PresenceMode, spec string) (core.Table, error) {
	out := t.Clone()
	if len(out) == 0 {
		return out, nil
	}

	switch mode {
	case ModePercentile:
		caps, err := parsePercentileSpec(spec, out)
		if err != nil {
			return nil, err
		}
		for i := range out {
			if out[i].RiskScore == nil {
				continue
			}
			if capVal, ok := caps[bucketFor(out[i].APTGroupCount)]; ok && *out[i].RiskScore > capVal {
				out[i].RiskScore = core.Float(capVal)
			}
		}
	default:
		factors := parseFactorSpec(spec)
		for i := range out {
			if out[i].RiskScore == nil {
				continue
			}
			out[i].RiskScore = core.Float(*out[i].RiskScore * factors[bucketFor(out[i].APTGroupCount)])
		}
	}
	return out, nil
}

func bucketFor(aptCount int) string {
	switch {
	case aptCount == 0:
		return bucketNone
	case aptCount <= 4:
		return bucketFew
	default:
		return bucketMany
	}
}

// parseFactorSpec overlays "bucket:ratio" pairs on the defaults. Malformed
// parts are skipped; the defaults still apply.
func parseFactorSpec(spec string) map[string]float64 {
	factors := make(map[string]float64, len(DefaultBucketFactors))
	for k, v := range DefaultBucketFactors {
		factors[k] = v
	}
	for _, part := range strings.Split(spec, ",") {
		rng, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		factors[strings.TrimSpace(rng)] = f
	}
	return factors
}

// parsePercentileSpec parses "bucket:qNN" pairs into concrete cap values
// computed from the current score distribution. Unlike the multiplicative
// spec, a malformed percentile spec is a configuration error.
func parsePercentileSpec(spec string, t core.Table) (map[string]float64, error) {
	scores := riskScores(t)
	caps := make(map[string]float64)
	for _, part := range strings.Split(spec, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		rng, q, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("presence: invalid percentile spec part %q", part)
		}
		qv, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(q), "q")), 64)
		if err != nil {
			return nil, fmt.Errorf("presence: invalid percentile in %q: %w", part, err)
		}
		caps[strings.TrimSpace(rng)] = quantile(scores, qv/100.0)
	}
	return caps, nil
}

func riskScores(t core.Table) []float64 {
	out := make([]float64, 0, len(t))
	for _, r := range t {
		if r.RiskScore != nil {
			out = append(out, *r.RiskScore)
		}
	}
	return out
}
