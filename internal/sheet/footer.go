package sheet

import (
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// FindFooterRow returns the first row at or after startRow whose leading
// columns contain any keyword (case-insensitive substring match). Totals rows
// in invoices are labelled "Total", "TOTALS (Table 1):" and similar.
func FindFooterRow(grid types.Grid, keywords []string, startRow, maxCol int) (int, bool) {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return 0, false
	}

	lastCol := min(maxCol, grid.MaxCol())
	for r := max(startRow, 1); r <= grid.MaxRow(); r++ {
		for c := 1; c <= lastCol; c++ {
			v := grid.Cell(r, c)
			if v.IsBlank() {
				continue
			}
			text := strings.ToLower(v.String())
			for _, k := range lowered {
				if strings.Contains(text, k) {
					return r, true
				}
			}
		}
	}
	return 0, false
}

// RowValues returns every cell of a row, up to the grid's last column.
func RowValues(grid types.Grid, row int) []types.Value {
	if row < 1 || row > grid.MaxRow() {
		return nil
	}
	values := make([]types.Value, grid.MaxCol())
	for c := 1; c <= grid.MaxCol(); c++ {
		values[c-1] = grid.Cell(row, c)
	}
	return values
}
