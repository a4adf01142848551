// =============================================================================
// Invoice Automation - XLSX Workbook Reader
// =============================================================================
//
// This module opens invoice and packing-list workbooks with excelize and
// exposes a single worksheet as a types.Grid for header detection and table
// extraction. It also reads header-synonym templates: small workbooks that
// list canonical fields and their spellings, so operators can maintain the
// header map in a spreadsheet instead of YAML.
//
// SHEET SELECTION:
//   A SheetSelector picks the worksheet by name, then by 1-based index, and
//   falls back to the workbook's active sheet.
//
// TEMPLATE STRUCTURE (header synonyms):
//
//   | Column A        | Column B        | Column C      | Column D ... |
//   |-----------------|-----------------|---------------|--------------|
//   | Canonical Field | Synonym         | Synonym       | ...          |
//   | net             | N.W (kgs)       | Net Weight    |              |
//   | pcs             | PCS             | Quantity(PCS) |              |
//
// CUSTOMIZATION:
//   - Modify TemplateColumns to match a different template layout
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the selector matches no worksheet.
var ErrSheetNotFound = errors.New("worksheet not found")

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an open spreadsheet file.
type Workbook struct {
	path string
	file *excelize.File
}

// SheetSelector chooses a worksheet. Name wins over Index; when both are
// empty the active sheet is used.
type SheetSelector struct {
	// Name is the exact worksheet name.
	Name string `yaml:"name" json:"name"`

	// Index is the 1-based worksheet position.
	Index int `yaml:"index" json:"index"`
}

// Open opens an .xlsx or .xlsm workbook.
//
// PARAMETERS:
//   - path: The workbook path.
//
// RETURNS:
//   - The open workbook; the caller must Close it.
//   - An error if the file cannot be opened.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string { return w.path }

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames lists the worksheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheet loads the selected worksheet into memory as a grid.
//
// RETURNS:
//   - The worksheet grid.
//   - ErrSheetNotFound if the selector names a sheet that does not exist.
//   - An error if the rows cannot be read.
func (w *Workbook) Sheet(sel SheetSelector) (*types.RowGrid, error) {
	name, err := w.resolve(sel)
	if err != nil {
		return nil, err
	}

	// Raw values keep full numeric precision instead of the display format.
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", name, err)
	}

	if err := w.normalizeNumbers(name, rows); err != nil {
		return nil, err
	}

	return types.NewRowGrid(name, rows), nil
}

// normalizeNumbers rewrites numeric cells to the shortest decimal text that
// round-trips their float64 value: Excel stores a typed 150.3 as
// "150.30000000000001". Text cells are left untouched even when they look
// numeric.
func (w *Workbook) normalizeNumbers(name string, rows [][]string) error {
	for r, row := range rows {
		for c, raw := range row {
			short, ok := shortestFloat(raw)
			if !ok {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			kind, err := w.file.GetCellType(name, cell)
			if err != nil {
				return fmt.Errorf("failed to read type of %s: %w", cell, err)
			}
			if kind == excelize.CellTypeUnset || kind == excelize.CellTypeNumber {
				row[c] = short
			}
		}
	}
	return nil
}

// shortestFloat returns the shortest round-trip form of a float literal when
// it differs from raw.
func shortestFloat(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	short := strconv.FormatFloat(v, 'f', -1, 64)
	if short == s {
		return "", false
	}
	return short, true
}

// resolve maps a selector to a worksheet name.
func (w *Workbook) resolve(sel SheetSelector) (string, error) {
	names := w.file.GetSheetList()
	if len(names) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}

	if sel.Name != "" {
		for _, n := range names {
			if n == sel.Name {
				return n, nil
			}
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, sel.Name, strings.Join(names, ", "))
	}

	if sel.Index > 0 {
		if sel.Index > len(names) {
			return "", fmt.Errorf("%w: index %d, workbook has %d sheets", ErrSheetNotFound, sel.Index, len(names))
		}
		return names[sel.Index-1], nil
	}

	active := w.file.GetSheetName(w.file.GetActiveSheetIndex())
	if active == "" {
		active = names[0]
	}
	return active, nil
}

// =============================================================================
// HEADER SYNONYM TEMPLATES
// =============================================================================

// TemplateColumns defines where a synonym template keeps its data.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	// FieldColumn holds the canonical field name.
	// Default: 0 (Column A)
	FieldColumn int

	// FirstSynonymColumn is the first synonym column; every non-empty cell
	// from here to the end of the row is a synonym.
	// Default: 1 (Column B)
	FirstSynonymColumn int

	// DataStartRow is the first row with mappings (0-based).
	// Default: 1 (Row 2, below the header)
	DataStartRow int
}

// DefaultTemplateColumns returns the default template layout.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		FieldColumn:        0,
		FirstSynonymColumn: 1,
		DataStartRow:       1,
	}
}

// ParseHeaderTemplate reads header synonyms from the first sheet of a
// template workbook.
func ParseHeaderTemplate(templatePath string) ([]sheet.HeaderEntry, error) {
	return ParseHeaderTemplateWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseHeaderTemplateWithConfig reads header synonyms using a custom layout.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//   - columns: The column configuration for parsing.
//
// RETURNS:
//   - One entry per non-empty template row, in row order. Rows repeating a
//     field are merged into the first entry for that field.
//   - An error if the file cannot be read or contains no mappings.
func ParseHeaderTemplateWithConfig(templatePath string, columns TemplateColumns) ([]sheet.HeaderEntry, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var entries []sheet.HeaderEntry
	position := make(map[types.Field]int)

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) || columns.FieldColumn >= len(row) {
			continue
		}

		field := types.Field(strings.ToLower(strings.TrimSpace(row[columns.FieldColumn])))
		if field == "" {
			continue
		}

		var synonyms []string
		for c := columns.FirstSynonymColumn; c < len(row); c++ {
			if s := strings.TrimSpace(row[c]); s != "" {
				synonyms = append(synonyms, s)
			}
		}

		if idx, ok := position[field]; ok {
			entries[idx].Synonyms = append(entries[idx].Synonyms, synonyms...)
			continue
		}
		position[field] = len(entries)
		entries = append(entries, sheet.HeaderEntry{Field: field, Synonyms: synonyms})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("template %s defines no header mappings", templatePath)
	}
	return entries, nil
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
