// Package core provides the foundational data model and the scoring
// pipeline orchestrator for ThreatAtlas.
package core

// RiskLevel is the qualitative band assigned from the score distribution.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
	RiskSevere   RiskLevel = "Severe"
)

// CountryRow is one record of the working table. Metric columns that can be
// absent are pointers; nil means missing, never a sentinel value.
type CountryRow struct {
	Country           string    `json:"country"`
	ISO2              string    `json:"iso2"`
	GCISum            *float64  `json:"gci_sum,omitempty"`
	APTGroupCount     int       `json:"apt_group_count"`
	NCSIScore         *float64  `json:"ncsi_score,omitempty"`
	SpamMagnitude     *float64  `json:"spam_magnitude,omitempty"`
	ExploitRank       *float64  `json:"exploit_rank,omitempty"`
	ExploitTotalToday *float64  `json:"exploit_total_today,omitempty"`
	RiskScore         *float64  `json:"risk_score,omitempty"`
	RiskLevel         RiskLevel `json:"risk_level,omitempty"`
}

// Table is the in-memory working table. Stages copy; they never mutate
// their input.
type Table []CountryRow

// Clone returns a copy with pointer fields re-boxed so writes through the
// copy cannot leak back into the source table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, r := range t {
		r.GCISum = cloneFloat(r.GCISum)
		r.NCSIScore = cloneFloat(r.NCSIScore)
		r.SpamMagnitude = cloneFloat(r.SpamMagnitude)
		r.ExploitRank = cloneFloat(r.ExploitRank)
		r.ExploitTotalToday = cloneFloat(r.ExploitTotalToday)
		r.RiskScore = cloneFloat(r.RiskScore)
		out[i] = r
	}
	return out
}

// HasNCSI reports whether at least one row carries a local NCSI score.
// The pipeline is local-first: a populated column skips the remote fetch.
func (t Table) HasNCSI() bool {
	for _, r := range t {
		if r.NCSIScore != nil {
			return true
		}
	}
	return false
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float boxes a float64 for the nullable metric columns.
func Float(v float64) *float64 { return &v }
