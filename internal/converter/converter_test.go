package converter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/report"
	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/ginjaninja78/invoice-automation/internal/validation"
	"github.com/xuri/excelize/v2"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeWorkbook creates a two-table packing list. Table 1 carries its net
// and gross weights on the first row of a two-row group.
func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Packing"); err != nil {
		t.Fatalf("failed to rename sheet: %v", err)
	}

	header := []any{"订单号", "物料代码", "总张数", "净重", "毛重", "单价", "出货数量 (SF)", "金额", "材积"}
	rows := map[string][]any{
		"A1": {"PACKING LIST"},
		"A2": header,
		"A3": {"PO1", "A", "10", "40", "44", "2.5", "100", "250", "2*3*4"},
		"A4": {"PO1", "A", "30", "", "", "2.5", "300", "750", ""},
		"A6": header,
		"A7": {"PO2", "B", "5", "10", "11", "3", "50", "150", "bad*data"},
	}
	for cell, values := range rows {
		if err := f.SetSheetRow("Packing", cell, &values); err != nil {
			t.Fatalf("failed to write row %s: %v", cell, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
}

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	mc := config.DefaultMainConfig()
	mc.InputDir = filepath.Join(root, "input")
	mc.OutputDir = filepath.Join(root, "output")
	mc.InputArchiveDir = filepath.Join(root, "input_archive")
	mc.OutputArchiveDir = filepath.Join(root, "output_archive")
	if err := config.EnsureDirectories(mc); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	return mc
}

func TestRunWorkbook(t *testing.T) {
	mc := testConfig(t)
	mc.OutputFormats = []string{"json", "xml", "xlsx"}
	input := filepath.Join(mc.InputDir, "JF-0001.xlsx")
	writeWorkbook(t, input)

	res := New(input, config.DefaultProfile(), mc, Options{RunID: "run-1"}, quiet()).Run(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Error)
	}

	if res.Stats.Tables != 2 || res.Stats.TablesAggregated != 2 || res.Stats.Rows != 3 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
	if len(res.Issues) != 1 || res.Issues[0].Rule != validation.RuleDimensions || res.Issues[0].Row != 7 {
		t.Errorf("expected one dimension issue on row 7, got %v", res.Issues)
	}
	if len(res.OutputFiles) != 4 {
		t.Fatalf("expected json, xml, xlsx and issue log, got %v", res.OutputFiles)
	}
	for _, out := range res.OutputFiles {
		if _, err := os.Stat(out); err != nil {
			t.Errorf("expected output %s: %v", out, err)
		}
	}

	rep, err := report.ReadJSON(res.OutputFiles[0])
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	if rep.Metadata.RunID != "run-1" || rep.Metadata.WorksheetName != "Packing" || rep.Metadata.AggregationModeUsed != "standard" {
		t.Errorf("unexpected metadata %+v", rep.Metadata)
	}

	net := rep.ProcessedTables["1"]["net"]
	if len(net) != 2 || *net[0] != "10.0000" || *net[1] != "30.0000" {
		t.Errorf("expected net distributed as 10.0000/30.0000, got %v", net)
	}
	cbm := rep.ProcessedTables["1"]["cbm"]
	if *cbm[0] != "24.0000" || cbm[1] != nil {
		t.Errorf("expected cbm 24.0000 then blank, got %v", cbm)
	}
	if c := rep.ProcessedTables["2"]["cbm"]; c[0] != nil {
		t.Errorf("expected unparsable cbm to become blank, got %q", *c[0])
	}

	line, ok := rep.Aggregation["PO1|A|2.5"]
	if !ok {
		t.Fatalf("expected key PO1|A|2.5, got %v", rep.AggregationKeys())
	}
	if line.SqftSum != "400" || line.AmountSum != "1000" || line.Rows != 2 {
		t.Errorf("unexpected aggregation line %+v", line)
	}

	if rep.FOB.CombinedPO != "PO1\\PO2" || rep.FOB.CombinedItem != "A\\B" {
		t.Errorf("unexpected FOB strings %q / %q", rep.FOB.CombinedPO, rep.FOB.CombinedItem)
	}
	if rep.FOB.TotalSqft != "450" || rep.FOB.TotalAmount != "1150" {
		t.Errorf("unexpected FOB totals %s / %s", rep.FOB.TotalSqft, rep.FOB.TotalAmount)
	}

	if !strings.HasPrefix(filepath.Base(res.OutputFiles[0]), "output_JF-0001_") {
		t.Errorf("unexpected output name %s", res.OutputFiles[0])
	}
}

func TestRunCSVCustomModeDryRun(t *testing.T) {
	mc := testConfig(t)
	input := filepath.Join(mc.InputDir, "CUST-7.csv")
	content := "po,item,pcs,net,unit,sqft,amount\n" +
		"PO1,A,1,9,2,10,20\n" +
		"PO1,A,2,,3,5,15\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	profile := &config.ProfileConfig{
		ProfileCode: "CUST",
		Header:      config.HeaderSettings{Pattern: "^item$"},
		Distribution: config.DistributionSettings{
			Fields: []types.Field{types.FieldNet},
		},
		Aggregation: config.AggregationSettings{CustomWorkbookPrefixes: []string{"CUST"}},
	}
	if err := profile.Prepare(); err != nil {
		t.Fatalf("unexpected profile error: %v", err)
	}

	res := New(input, profile, mc, Options{DryRun: true}, quiet()).Run(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Error)
	}
	if len(res.OutputFiles) != 0 {
		t.Errorf("expected no outputs in dry run, got %v", res.OutputFiles)
	}

	rep := res.Report
	if rep.Metadata.AggregationModeUsed != "custom" {
		t.Errorf("expected custom mode, got %s", rep.Metadata.AggregationModeUsed)
	}
	line, ok := rep.Aggregation["PO1|A"]
	if !ok || line.SqftSum != "15" || line.AmountSum != "35" {
		t.Errorf("expected price-less key PO1|A with sums 15/35, got %v", rep.Aggregation)
	}
	net := rep.ProcessedTables["1"]["net"]
	if *net[0] != "3.0000" || *net[1] != "6.0000" {
		t.Errorf("expected net shares 3.0000/6.0000, got %s/%s", *net[0], *net[1])
	}

	entries, _ := os.ReadDir(mc.OutputDir)
	if len(entries) != 0 {
		t.Errorf("expected empty output directory, got %d entries", len(entries))
	}
}

func TestRunStructuralFailures(t *testing.T) {
	mc := testConfig(t)

	noHeader := filepath.Join(mc.InputDir, "empty.csv")
	if err := os.WriteFile(noHeader, []byte("hello,world\n1,2\n"), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	res := New(noHeader, config.DefaultProfile(), mc, Options{}, quiet()).Run(context.Background())
	if res.Success || !errors.Is(res.Error, sheet.ErrNoHeaderRows) {
		t.Errorf("expected ErrNoHeaderRows, got %v", res.Error)
	}

	noAmount := filepath.Join(mc.InputDir, "noamount.csv")
	if err := os.WriteFile(noAmount, []byte("订单号,物料代码,总张数\nPO1,A,1\n"), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	res = New(noAmount, config.DefaultProfile(), mc, Options{}, quiet()).Run(context.Background())
	if res.Success || !errors.Is(res.Error, validation.ErrMissingRequiredField) {
		t.Errorf("expected ErrMissingRequiredField, got %v", res.Error)
	}

	res = New(filepath.Join(mc.InputDir, "notes.txt"), config.DefaultProfile(), mc, Options{}, quiet()).Run(context.Background())
	if res.Success || res.Error == nil {
		t.Error("expected unsupported file type to fail")
	}
}

func TestRunCancelled(t *testing.T) {
	mc := testConfig(t)
	input := filepath.Join(mc.InputDir, "JF-0002.xlsx")
	writeWorkbook(t, input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(input, config.DefaultProfile(), mc, Options{}, quiet()).Run(ctx)
	if !errors.Is(res.Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Error)
	}
}

func TestRunArchivesInput(t *testing.T) {
	mc := testConfig(t)
	mc.ArchiveOnSuccess = true
	input := filepath.Join(mc.InputDir, "JF-0003.xlsx")
	writeWorkbook(t, input)

	res := New(input, config.DefaultProfile(), mc, Options{}, quiet()).Run(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Error)
	}
	if res.ArchivePath != filepath.Join(mc.InputArchiveDir, "JF-0003.xlsx") {
		t.Errorf("unexpected archive path %s", res.ArchivePath)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Error("expected input to be moved")
	}
	archived, _ := os.ReadDir(mc.OutputArchiveDir)
	if len(archived) != len(res.OutputFiles) {
		t.Errorf("expected %d archived outputs, got %d", len(res.OutputFiles), len(archived))
	}
}
