package xmlwriter

import (
	"encoding/xml"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/report"
)

func strPtr(s string) *string { return &s }

func sampleReport() *report.Report {
	return &report.Report{
		Metadata: report.Metadata{
			RunID:               "abc",
			WorkbookFilename:    "INV & Co.xlsx",
			WorksheetName:       "Packing",
			AggregationModeUsed: "standard",
		},
		ProcessedTables: map[string]report.TableColumns{
			"1": {"po": {strPtr("PO1"), nil}, "net": {strPtr("1.5000"), strPtr("0")}},
		},
		Aggregation: map[string]report.AggregationLine{
			"PO2|B|":    {SqftSum: "3", AmountSum: "4"},
			"PO1|A|1.5": {SqftSum: "15", AmountSum: "22.5"},
		},
		FOB: report.FOBSummary{CombinedPO: "PO1\\PO2", CombinedItem: "A\\B", TotalSqft: "18", TotalAmount: "26.5"},
	}
}

func TestGenerate(t *testing.T) {
	data, err := Generate(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "<?xml") {
		t.Errorf("expected XML declaration")
	}
	if !strings.Contains(out, `workbook="INV &amp; Co.xlsx"`) {
		t.Errorf("expected escaped workbook attribute, got:\n%s", out)
	}
	if strings.Contains(out, "<tables") {
		t.Errorf("expected tables omitted by default, got:\n%s", out)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated XML does not parse: %v", err)
	}
	if doc.Tables != nil {
		t.Errorf("expected no tables element, got %+v", doc.Tables)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(doc.Lines))
	}
	first := doc.Lines[0]
	if first.N != 1 || first.PO != "PO1" || first.Item != "A" || first.Price != "1.5" || first.SqftSum != "15" {
		t.Errorf("unexpected first line %+v", first)
	}
	if doc.Lines[1].Price != "" {
		t.Errorf("expected empty price for missing price key, got %q", doc.Lines[1].Price)
	}
	if doc.FOB.TotalAmount != "26.5" {
		t.Errorf("expected total amount 26.5, got %s", doc.FOB.TotalAmount)
	}
}

func TestGenerateCustomModeHasNoPrice(t *testing.T) {
	rep := sampleReport()
	rep.Metadata.AggregationModeUsed = "custom"
	rep.Aggregation = map[string]report.AggregationLine{"PO1|A": {SqftSum: "1", AmountSum: "2"}}

	data, err := Generate(rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated XML does not parse: %v", err)
	}
	if doc.Lines[0].Item != "A" || doc.Lines[0].Price != "" || doc.Lines[0].Description != "" {
		t.Errorf("unexpected line %+v", doc.Lines[0])
	}
}

func TestGenerateWithTables(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.IncludeTables = true
	opts.IncludeXMLDeclaration = false

	data, err := GenerateWithOptions(sampleReport(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	if strings.HasPrefix(out, "<?xml") {
		t.Errorf("expected no declaration")
	}
	if !strings.Contains(out, `<cell field="net">1.5000</cell>`) {
		t.Errorf("expected table cells, got:\n%s", out)
	}
	if strings.Count(out, "<row ") != 2 {
		t.Errorf("expected 2 rows, got:\n%s", out)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated XML does not parse: %v", err)
	}
	if doc.Tables == nil || len(doc.Tables.Table) != 1 {
		t.Fatalf("expected 1 table, got %+v", doc.Tables)
	}
	if doc.Tables.Table[0].ID != "1" {
		t.Errorf("expected table id 1, got %q", doc.Tables.Table[0].ID)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")
	if err := WriteFile(sampleReport(), path, DefaultGenerateOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
