package csvparser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestParseReaderRaggedRows(t *testing.T) {
	input := "INVOICE 42\nP.O N°,ITEM N°,N.W (kgs)\nPO1,A,\"1,234.5\"\nPO1,B\n"

	grid, err := ParseReader(strings.NewReader(input), "packing", config.CSVSettings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if grid.MaxRow() != 4 {
		t.Errorf("expected 4 rows, got %d", grid.MaxRow())
	}
	if grid.MaxCol() != 3 {
		t.Errorf("expected 3 columns, got %d", grid.MaxCol())
	}
	if got := grid.Cell(3, 3); got.Kind != types.KindText || got.String() != "1,234.5" {
		t.Errorf("expected text 1,234.5 kept for numeric conversion, got %q", got.String())
	}
	if got := grid.Cell(3, 1); got.Kind != types.KindText || got.String() != "PO1" {
		t.Errorf("expected PO1, got %q", got.String())
	}
	if !grid.Cell(4, 3).IsBlank() {
		t.Errorf("expected blank for short row")
	}
}

func TestParseReaderDelimiters(t *testing.T) {
	cases := map[string]string{
		"tab":       "a\tb\n",
		"|":         "a|b\n",
		"semicolon": "a;b\n",
	}
	for delim, input := range cases {
		grid, err := ParseReader(strings.NewReader(input), "x", config.CSVSettings{Delimiter: delim})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", delim, err)
		}
		if grid.Cell(1, 2).String() != "b" {
			t.Errorf("%s: expected second column b, got %q", delim, grid.Cell(1, 2).String())
		}
	}
}

func TestParseReaderDecodesGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("净重,毛重\n1,2\n"))
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	grid, err := ParseReader(bytes.NewReader(encoded), "gbk", config.CSVSettings{Encoding: "GBK"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := grid.Cell(1, 1).String(); got != "净重" {
		t.Errorf("expected 净重, got %q", got)
	}
}

func TestParseReaderStripsBOM(t *testing.T) {
	input := "\xef\xbb\xbfPO,ITEM\n"
	grid, err := ParseReader(strings.NewReader(input), "bom", config.CSVSettings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := grid.Cell(1, 1).String(); got != "PO" {
		t.Errorf("expected PO without BOM, got %q", got)
	}
}

func TestParseReaderRejectsUnknownEncoding(t *testing.T) {
	if _, err := ParseReader(strings.NewReader("a\n"), "x", config.CSVSettings{Encoding: "klingon"}); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestParseNamesGridAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "JF-0001.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	grid, err := Parse(path, config.CSVSettings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid.Name() != "JF-0001" {
		t.Errorf("expected grid name JF-0001, got %s", grid.Name())
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := ParseReader(strings.NewReader(""), "empty", config.CSVSettings{}); err == nil {
		t.Fatal("expected error for empty CSV")
	}
}
