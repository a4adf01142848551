// =============================================================================
// Invoice Automation - Header Locator
// =============================================================================
//
// Finds the header rows of every table stacked in a worksheet. A sheet exported
// from a packing-list system usually contains several tables one after the
// other, each introduced by its own header row, with free-form title and
// address blocks in between.
//
// SEARCH WINDOW:
//   Only the first maxRow x maxCol cells are inspected. Header rows sit near
//   the top of real documents and scanning an entire sheet is wasteful.
//
// =============================================================================

package sheet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// ErrNoHeaderRows is returned when no row in the search window matches the
// header pattern.
var ErrNoHeaderRows = errors.New("no header rows matched the identification pattern")

// CompilePattern compiles a header identification pattern for
// case-insensitive matching.
//
// PARAMETERS:
//   - pattern: A regular expression such as "订单号|净重|毛重".
//
// RETURNS:
//   - The compiled expression.
//   - An error if the pattern is empty or invalid.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("header pattern is empty")
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile header pattern %q: %w", pattern, err)
	}
	return re, nil
}

// FindHeaderRows scans a bounded window of the grid row by row and returns
// every row containing at least one cell that matches the pattern.
//
// PARAMETERS:
//   - grid: The worksheet to scan.
//   - pattern: A compiled header pattern (see CompilePattern).
//   - maxRow: Last row to inspect (bounded by the grid's size).
//   - maxCol: Last column to inspect (bounded by the grid's size).
//
// RETURNS:
//   - The 1-based indices of header rows in ascending order. An empty slice
//     means the sheet is not recognizable; callers treat it as fatal.
//
// MATCHING LOGIC:
//   A row qualifies the moment any one cell matches; the rest of that row is
//   skipped and scanning resumes on the next row.
func FindHeaderRows(grid types.Grid, pattern *regexp.Regexp, maxRow, maxCol int) []int {
	rows := []int{}
	lastRow := min(maxRow, grid.MaxRow())
	lastCol := min(maxCol, grid.MaxCol())

	for r := 1; r <= lastRow; r++ {
		for c := 1; c <= lastCol; c++ {
			v := grid.Cell(r, c)
			if v.IsBlank() {
				continue
			}
			if pattern.MatchString(strings.TrimSpace(v.String())) {
				rows = append(rows, r)
				break
			}
		}
	}

	return rows
}
