// Package report renders the scored table for terminals, CSV export, and
// JSON consumers.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

// Columns is the fixed display column set, in order.
var Columns = []string{
	"Country",
	"ISO2",
	"NCSI_Score",
	"Spam_Magnitude",
	"GCI_Sum",
	"APT_Group_Count",
	"Exploit_Rank",
	"Exploit_TotalToday",
	"Risk_Score",
	"Risk_Level",
}

// WriteTable renders up to top rows (top <= 0 means all) as an aligned
// text table.
func WriteTable(w io.Writer, t core.Table, top int) {
	rows := t
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(Columns)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range rows {
		tw.Append(displayRow(r))
	}
	tw.Render()
}

// ExportCSV writes the full scored table to path.
func ExportCSV(path string, t core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range t {
		if err := w.Write(displayRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// MarshalJSON renders the table as indented JSON.
func MarshalJSON(t core.Table) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func displayRow(r core.CountryRow) []string {
	return []string{
		r.Country,
		r.ISO2,
		floatCell(r.NCSIScore, 1),
		floatCell(r.SpamMagnitude, 1),
		floatCell(r.GCISum, 1),
		strconv.Itoa(r.APTGroupCount),
		floatCell(r.ExploitRank, 0),
		floatCell(r.ExploitTotalToday, 0),
		floatCell(r.RiskScore, 2),
		string(r.RiskLevel),
	}
}

// floatCell renders a nullable metric; missing values stay blank rather
// than pretending to be zero.
func floatCell(p *float64, prec int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, *p)
}
