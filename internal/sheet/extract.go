package sheet

import (
	"log/slog"

	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// ExtractOptions controls how far below each header the extractor reads.
type ExtractOptions struct {
	// StopField ends a table at the first row where this field's cell is
	// blank. Empty disables the stop condition.
	StopField types.Field

	// MaxRows caps the number of rows read per table. Zero means no cap.
	MaxRows int
}

// ExtractTables reads one table under each header row.
//
// PARAMETERS:
//   - grid: The worksheet.
//   - headerRows: Header rows in ascending order (see FindHeaderRows).
//   - mapping: Column positions shared by every table on the sheet.
//   - opts: Stop field and row cap.
//   - logger: Receives per-table diagnostics.
//
// RETURNS:
//   - One table per header row, indexed from 1 in header order. Tables with
//     no data rows are included with empty columns.
//
// SPAN LOGIC:
//   Table i reads rows headerRows[i]+1 through headerRows[i+1]-1, or through
//   the last row of the sheet for the final table, further limited by
//   opts.MaxRows. Reading stops early at the first blank stop-field cell.
func ExtractTables(grid types.Grid, headerRows []int, mapping types.ColumnMapping, opts ExtractOptions, logger *slog.Logger) []*types.Table {
	fields := OrderedFields(mapping)
	tables := make([]*types.Table, 0, len(headerRows))

	stopCol, hasStop := 0, false
	if opts.StopField != "" {
		stopCol, hasStop = mapping[opts.StopField]
		if !hasStop {
			logger.Warn("stop field is not mapped, reading full table spans", "field", opts.StopField)
		}
	}

	for i, header := range headerRows {
		table := types.NewTable(i+1, header, fields)

		start := header + 1
		end := grid.MaxRow()
		if i+1 < len(headerRows) {
			end = headerRows[i+1] - 1
		}
		if opts.MaxRows > 0 && end-start+1 > opts.MaxRows {
			logger.Warn("table span exceeds row limit, truncating",
				"table", table.Index, "span", end-start+1, "max_rows", opts.MaxRows)
			end = start + opts.MaxRows - 1
		}

		for r := start; r <= end; r++ {
			if hasStop && grid.Cell(r, stopCol).IsBlank() {
				logger.Debug("stop field blank, ending table", "table", table.Index, "row", r, "field", opts.StopField)
				break
			}
			for _, f := range fields {
				table.Columns[f] = append(table.Columns[f], grid.Cell(r, mapping[f]))
			}
		}

		if table.Len() == 0 {
			logger.Warn("table has no data rows", "table", table.Index, "header_row", header)
		} else {
			logger.Debug("extracted table", "table", table.Index, "header_row", header, "rows", table.Len())
		}
		tables = append(tables, table)
	}

	return tables
}
