package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
)

func reportTable() core.Table {
	return core.Table{
		{
			Country:       "United Kingdom",
			ISO2:          "GB",
			NCSIScore:     core.Float(89.61),
			SpamMagnitude: core.Float(6.5),
			GCISum:        core.Float(99.5),
			APTGroupCount: 6,
			ExploitRank:   core.Float(4),
			RiskScore:     core.Float(60.12),
			RiskLevel:     core.RiskSevere,
		},
		{
			Country:   "Nauru",
			ISO2:      "NR",
			GCISum:    core.Float(5.0),
			RiskScore: core.Float(15.9),
			RiskLevel: core.RiskLow,
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, reportTable(), 0)
	out := buf.String()

	for _, want := range []string{"United Kingdom", "GB", "60.12", "Severe", "Nauru"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTableTopN(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, reportTable(), 1)
	out := buf.String()

	if !strings.Contains(out, "United Kingdom") {
		t.Errorf("top row missing:\n%s", out)
	}
	if strings.Contains(out, "Nauru") {
		t.Errorf("row past top N rendered:\n%s", out)
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := ExportCSV(path, reportTable()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rec, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rec) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rec))
	}
	if rec[0][0] != "Country" || rec[0][len(rec[0])-1] != "Risk_Level" {
		t.Errorf("header = %v", rec[0])
	}
	if rec[1][0] != "United Kingdom" || rec[1][8] != "60.12" {
		t.Errorf("row 1 = %v", rec[1])
	}
	// Missing metrics export as empty cells, not zeros.
	if rec[2][2] != "" || rec[2][3] != "" {
		t.Errorf("missing cells not blank: %v", rec[2])
	}
}

func TestMarshalJSON(t *testing.T) {
	out, err := MarshalJSON(reportTable()[:1])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"country": "United Kingdom"`, `"risk_level": "Severe"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s:\n%s", want, out)
		}
	}
}

func TestFloatCell(t *testing.T) {
	if got := floatCell(nil, 2); got != "" {
		t.Errorf("nil cell = %q, want empty", got)
	}
	if got := floatCell(core.Float(6.5), 1); got != "6.5" {
		t.Errorf("cell = %q, want 6.5", got)
	}
	if got := floatCell(core.Float(4), 0); got != "4" {
		t.Errorf("cell = %q, want 4", got)
	}
}
