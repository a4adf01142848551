// =============================================================================
// Invoice Automation - CSV Reader
// =============================================================================
//
// Some suppliers export packing lists as CSV instead of XLSX. This module
// reads such a file into the same types.Grid the XLSX reader produces, so
// header detection and table extraction never know the difference.
//
// FEATURES:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Legacy encodings (GBK, GB18030, Big5, Windows-1252, ...) decoded with
//     golang.org/x/text; a leading byte order mark always wins
//   - Ragged rows and sloppy quoting
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a grid named after the file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings from the profile.
//
// RETURNS:
//   - The grid. encoding/csv drops empty lines, so row numbers count
//     non-empty records.
//   - An error if the file cannot be opened, decoded or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.RowGrid, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return ParseReader(file, name, settings)
}

// ParseReader reads CSV content from r.
func ParseReader(r io.Reader, name string, settings config.CSVSettings) (*types.RowGrid, error) {
	decoder, err := newDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	configureReader(csvReader, settings)

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return types.NewRowGrid(name, rows), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	if settings.Comment != "" {
		reader.Comment = rune(settings.Comment[0])
	}

	// Packing lists are ragged: titles and footers span fewer columns.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// newDecoder returns a transformer that turns the named encoding into UTF-8.
// Names follow the WHATWG encoding labels ("utf-8", "gbk", "windows-1252",
// "big5", ...). An empty name means UTF-8.
func newDecoder(name string) (transform.Transformer, error) {
	if strings.TrimSpace(name) == "" {
		name = "utf-8"
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}

	return unicode.BOMOverride(enc.NewDecoder()), nil
}
