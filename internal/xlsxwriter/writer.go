// =============================================================================
// Invoice Automation - Table Renderer
// =============================================================================
//
// Draws processed tables back into a spreadsheet: header rows, data rows,
// an HS code row, a totals row with SUM formulas and trailing blank rows,
// all bordered and centered. Tables are inserted (existing rows below are
// shifted down), so the renderer can write into a new workbook or into an
// existing template.
//
// TABLE LAYOUT (default):
//
//   row  | col 1          | col 2 .. col 11
//   -----|----------------|---------------------------------------------
//   h1   | Mark & N°      | P.O N° | ITEM N° | ... | Quantity    | ...
//   h2   |                |        |         |     | PCS  | SF   |
//   d1   | VENDOR#:       | data ...
//   d2.. | static labels  | data ...
//   pre  |                | HS.CODE (merged 2-3) | (merged 4..amount-1)
//   foot | TOTALS (...):  | N ITEMS | =SUM(...) ...
//   blank|                |
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/invoice-automation/internal/report"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// TableData is one processed table to draw.
type TableData struct {
	// ID replaces "{table}" in the footer keyword.
	ID string

	// Columns holds the cell values per field; nil is blank.
	Columns report.TableColumns
}

// rows returns the number of data entries in the table.
func (t TableData) rows(l Layout) int {
	n := 0
	for _, s := range l.Columns {
		n = max(n, len(t.Columns[string(s.Field)]))
	}
	return n
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer writes tables into one worksheet.
type Renderer struct {
	file   *excelize.File
	sheet  string
	layout Layout
	logger *slog.Logger

	styles map[cellStyle]int
	widths map[int]int
}

// cellStyle identifies one border/alignment combination.
type cellStyle struct {
	top, bottom bool
	leftAligned bool
}

// NewRenderer creates a renderer for a worksheet of an open file.
func NewRenderer(f *excelize.File, sheet string, layout Layout, logger *slog.Logger) *Renderer {
	layout.ApplyDefaults()
	return &Renderer{
		file:   f,
		sheet:  sheet,
		layout: layout,
		logger: logger,
		styles: make(map[cellStyle]int),
		widths: make(map[int]int),
	}
}

// WriteCell writes a plain value and records its width.
func (r *Renderer) WriteCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := r.file.SetCellValue(r.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	r.track(col, value)
	return nil
}

// track remembers the longest text written per column.
func (r *Renderer) track(col int, text string) {
	r.widths[col] = max(r.widths[col], utf8.RuneCountInString(text))
}

// InsertTable inserts a table before startRow.
//
// PARAMETERS:
//   - startRow: The 1-based row the table's first header row lands on.
//   - table: The values to draw.
//
// RETURNS:
//   - The row after the table's last row.
//   - An error if any sheet operation fails.
//
// LAYOUT STEPS:
//   1. Insert header + data + HS code + footer + trailing rows
//   2. Write and merge header rows
//   3. Write data rows and static labels
//   4. Write and merge the HS code row
//   5. Write the totals row
//   6. Apply borders and alignment
func (r *Renderer) InsertTable(startRow int, table TableData) (int, error) {
	l := r.layout
	numCols := l.width()
	entries := table.rows(l)
	dataRows := max(entries, len(l.StaticLabels))

	preRows := 0
	if l.HSCodeText != "" {
		preRows = 1
	}

	headerStart := startRow
	dataStart := headerStart + len(l.HeaderRows)
	dataEnd := dataStart + dataRows - 1
	preRow := dataEnd + 1
	footerRow := preRow + preRows
	endRow := footerRow + l.TrailingBlankRows

	// STEP 1: Make room.
	if err := r.file.InsertRows(r.sheet, startRow, endRow-startRow+1); err != nil {
		return startRow, fmt.Errorf("failed to insert rows at %d: %w", startRow, err)
	}

	// STEP 2: Header rows.
	if err := r.writeHeaders(headerStart, numCols); err != nil {
		return startRow, err
	}

	// STEP 3: Data rows.
	for i := 0; i < dataRows; i++ {
		row := dataStart + i
		if i < len(l.StaticLabels) && l.StaticLabels[i] != "" {
			if err := r.WriteCell(row, 1, l.StaticLabels[i]); err != nil {
				return startRow, err
			}
		}
		for _, slot := range l.Columns {
			values := table.Columns[string(slot.Field)]
			if slot.Column < 1 || i >= len(values) || values[i] == nil {
				continue
			}
			if err := r.writeData(row, slot, *values[i]); err != nil {
				return startRow, err
			}
		}
	}

	// STEP 4: HS code row.
	if preRows > 0 {
		if err := r.writeHSCode(preRow); err != nil {
			return startRow, err
		}
	}

	// STEP 5: Totals row.
	if err := r.writeFooter(footerRow, dataStart, dataEnd, dataRows, entries, table.ID); err != nil {
		return startRow, err
	}

	// STEP 6: Borders and alignment.
	if err := r.applyStyles(headerStart, dataStart, dataEnd, endRow, numCols); err != nil {
		return startRow, err
	}

	r.logger.Debug("inserted table", "table", table.ID, "start_row", startRow, "end_row", endRow, "rows", entries)
	return endRow + 1, nil
}

// writeHeaders writes the header rows and merges a two-row header.
func (r *Renderer) writeHeaders(start, numCols int) error {
	header := r.layout.HeaderRows
	text := func(row, col int) string {
		if row >= len(header) || col >= len(header[row]) {
			return ""
		}
		return header[row][col]
	}

	for i := range header {
		for c := 0; c < numCols; c++ {
			if v := text(i, c); v != "" {
				if err := r.WriteCell(start+i, c+1, v); err != nil {
					return err
				}
			}
		}
	}

	if len(header) != 2 {
		return nil
	}

	for c := 0; c < numCols; c++ {
		if text(0, c) == "" {
			continue
		}

		// A group header spans the following empty top cells whose bottom
		// cells are filled.
		end := c
		if text(1, c) != "" {
			for end+1 < numCols && text(0, end+1) == "" && text(1, end+1) != "" {
				end++
			}
		}

		switch {
		case end > c:
			if err := r.merge(start, c+1, start, end+1); err != nil {
				return err
			}
			c = end
		case text(1, c) == "":
			if err := r.merge(start, c+1, start+1, c+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeData writes one data cell, as a number for numeric fields.
func (r *Renderer) writeData(row int, slot ColumnSlot, value string) error {
	cell, err := excelize.CoordinatesToCellName(slot.Column, row)
	if err != nil {
		return err
	}

	if r.layout.isNumeric(slot.Field) {
		if d, err := decimal.NewFromString(value); err == nil {
			if err := r.file.SetCellFloat(r.sheet, cell, d.InexactFloat64(), -1, 64); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
			r.track(slot.Column, value)
			return nil
		}
	}

	if err := r.file.SetCellValue(r.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	r.track(slot.Column, value)
	return nil
}

// writeHSCode writes the HS code text merged over columns 2-3 and merges the
// blank span from column 4 up to the column before the amount.
func (r *Renderer) writeHSCode(row int) error {
	if err := r.WriteCell(row, 2, r.layout.HSCodeText); err != nil {
		return err
	}
	if err := r.merge(row, 2, row, 3); err != nil {
		return err
	}

	if amount := r.layout.column(r.layout.AmountField); amount > 4 {
		if err := r.merge(row, 4, row, amount-1); err != nil {
			return err
		}
	}
	return nil
}

// writeFooter writes SUM formulas, the item count and the keyword.
func (r *Renderer) writeFooter(row, dataStart, dataEnd, dataRows, entries int, id string) error {
	numCols := r.layout.width()

	for _, f := range r.layout.SumFields {
		col := r.layout.column(f)
		if col < 1 || col > numCols {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}

		if dataRows == 0 {
			if err := r.file.SetCellValue(r.sheet, cell, 0); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
			continue
		}

		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		formula := fmt.Sprintf("SUM(%s%d:%s%d)", name, dataStart, name, dataEnd)
		if err := r.file.SetCellFormula(r.sheet, cell, formula); err != nil {
			return fmt.Errorf("failed to write formula %s: %w", cell, err)
		}
		r.track(col, "="+formula)
	}

	if col := r.layout.column(r.layout.CountField); col >= 1 && col <= numCols {
		if err := r.WriteCell(row, col, strconv.Itoa(entries)+" ITEMS"); err != nil {
			return err
		}
	}

	if r.layout.FooterKeyword != "" {
		keyword := strings.ReplaceAll(r.layout.FooterKeyword, "{table}", id)
		if err := r.WriteCell(row, 1, keyword); err != nil {
			return err
		}
	}
	return nil
}

// applyStyles borders every cell of the table. Columns 2+ get a full thin
// grid; column 1 is closed on the left and right and only closed at the top
// and bottom around each section, so the data section reads as one block.
func (r *Renderer) applyStyles(start, dataStart, dataEnd, end, numCols int) error {
	if numCols < 1 {
		return nil
	}

	if numCols > 1 {
		grid, err := r.style(cellStyle{top: true, bottom: true})
		if err != nil {
			return err
		}
		from, _ := excelize.CoordinatesToCellName(2, start)
		to, _ := excelize.CoordinatesToCellName(numCols, end)
		if err := r.file.SetCellStyle(r.sheet, from, to, grid); err != nil {
			return fmt.Errorf("failed to style %s:%s: %w", from, to, err)
		}
	}

	for row := start; row <= end; row++ {
		key := cellStyle{top: true, bottom: true}
		if row >= dataStart && row <= dataEnd {
			key = cellStyle{
				top:         row == dataStart,
				bottom:      row == dataEnd,
				leftAligned: row == dataStart,
			}
		}

		id, err := r.style(key)
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := r.file.SetCellStyle(r.sheet, cell, cell, id); err != nil {
			return fmt.Errorf("failed to style %s: %w", cell, err)
		}
	}
	return nil
}

// style returns the cached style id for a border/alignment combination.
func (r *Renderer) style(key cellStyle) (int, error) {
	if id, ok := r.styles[key]; ok {
		return id, nil
	}

	borders := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	if key.top {
		borders = append(borders, excelize.Border{Type: "top", Color: "000000", Style: 1})
	}
	if key.bottom {
		borders = append(borders, excelize.Border{Type: "bottom", Color: "000000", Style: 1})
	}

	align := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	if key.leftAligned {
		align = &excelize.Alignment{Vertical: "center"}
	}

	id, err := r.file.NewStyle(&excelize.Style{Border: borders, Alignment: align})
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	r.styles[key] = id
	return id, nil
}

// merge merges a rectangular range given in 1-based coordinates.
func (r *Renderer) merge(row1, col1, row2, col2 int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return err
	}
	if err := r.file.MergeCell(r.sheet, from, to); err != nil {
		return fmt.Errorf("failed to merge %s:%s: %w", from, to, err)
	}
	return nil
}

// AutoFitColumns sets each written column's width to its longest text plus
// padding, capped by the layout's MaxColumnWidth.
func (r *Renderer) AutoFitColumns() error {
	for col, n := range r.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := min(float64(n+3), r.layout.MaxColumnWidth)
		if err := r.file.SetColWidth(r.sheet, name, name, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// REPORT RENDERING
// =============================================================================

// RenderReport draws every processed table of a report into a new workbook.
//
// PARAMETERS:
//   - rep: The report to draw.
//   - layout: The table layout.
//   - outPath: Where to save the workbook.
//   - logger: Receives progress messages.
//
// The sheet starts with "Report:" and "Sheet:" title rows; tables follow from
// row 4 in numeric table order, separated by one empty row.
func RenderReport(rep *report.Report, layout Layout, outPath string, logger *slog.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	name := SanitizeSheetName(rep.Metadata.WorksheetName)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	r := NewRenderer(f, name, layout, logger)
	if err := r.WriteCell(1, 1, "Report: "+rep.Metadata.WorkbookFilename); err != nil {
		return err
	}
	if err := r.WriteCell(2, 1, "Sheet: "+rep.Metadata.WorksheetName); err != nil {
		return err
	}

	if _, err := r.InsertTables(4, rep); err != nil {
		return err
	}

	if err := r.AutoFitColumns(); err != nil {
		return err
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	logger.Info("rendered report", "path", outPath, "tables", len(rep.ProcessedTables))
	return nil
}

// InsertTables inserts every table of a report from startRow down, one empty
// row apart, and returns the row after the last table.
func (r *Renderer) InsertTables(startRow int, rep *report.Report) (int, error) {
	next := startRow
	for _, id := range rep.TableIDs() {
		end, err := r.InsertTable(next, TableData{ID: id, Columns: rep.ProcessedTables[id]})
		if err != nil {
			return next, fmt.Errorf("failed to render table %s: %w", id, err)
		}
		next = end + 1
	}
	return next, nil
}

// AppendToWorkbook inserts a report's tables into an existing workbook at
// startRow of the named sheet and saves the file in place. An empty sheet
// name selects the first sheet.
func AppendToWorkbook(path, sheet string, startRow int, rep *report.Report, layout Layout, logger *slog.Logger) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return fmt.Errorf("sheet %q not found in %s", sheet, path)
	}

	r := NewRenderer(f, sheet, layout, logger)
	if _, err := r.InsertTables(startRow, rep); err != nil {
		return err
	}
	if err := r.AutoFitColumns(); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// SanitizeSheetName keeps letters, digits, spaces and underscores and
// truncates to Excel's 31-character limit. An empty result becomes "Sheet".
func SanitizeSheetName(name string) string {
	var b strings.Builder
	for _, c := range name {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == ' ' || c == '_' {
			b.WriteRune(c)
		}
	}

	out := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(out) > 31 {
		out = string([]rune(out)[:31])
	}
	if out == "" {
		return "Sheet"
	}
	return out
}
