package core

import (
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Baseline CSV columns. Country and ISO2 are required; the rest are
// optional enrichment. Unknown columns (such as a legacy Tier) are ignored.
const (
	colCountry = "Country"
	colISO2    = "ISO2"
	colGCI     = "GCI_Sum"
	colAPT     = "APT_Group_Count"
	colNCSI    = "NCSI_Score"
)

// LoadBaseCSV reads the baseline table. ISO2 codes are upper-cased and
// trimmed; a duplicate code keeps the first row so the join key stays
// unique. Missing required columns abort the run with a ConfigError.
func LoadBaseCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, MissingColumn(colCountry)
	}

	head := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		head[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colCountry, colISO2} {
		if _, ok := head[required]; !ok {
			return nil, MissingColumn(required)
		}
	}

	var t Table
	seen := make(map[string]struct{})
	for _, rec := range records[1:] {
		get := func(col string) string {
			i, ok := head[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := CountryRow{
			Country: get(colCountry),
			ISO2:    strings.ToUpper(get(colISO2)),
		}
		if row.Country == "" && row.ISO2 == "" {
			continue
		}
		// Uniqueness only applies to actual codes; rows without one are
		// still joinable by name and all kept.
		if row.ISO2 != "" {
			if _, dup := seen[row.ISO2]; dup {
				slog.Warn("base table: duplicate ISO2, keeping first occurrence", "iso2", row.ISO2, "country", row.Country)
				continue
			}
			seen[row.ISO2] = struct{}{}
		}

		if v, err := strconv.ParseFloat(get(colGCI), 64); err == nil {
			row.GCISum = Float(v)
		}
		if v, err := strconv.Atoi(get(colAPT)); err == nil && v >= 0 {
			row.APTGroupCount = v
		}
		if v, err := strconv.ParseFloat(get(colNCSI), 64); err == nil {
			row.NCSIScore = Float(v)
		}
		t = append(t, row)
	}
	return t, nil
}
