package types

// RowGrid is a Grid backed by rows of raw cell strings, as returned by
// excelize GetRows or encoding/csv ReadAll. Rows may be ragged.
type RowGrid struct {
	name   string
	cells  [][]Value
	maxCol int
}

// NewRowGrid classifies every raw cell once and returns the grid.
func NewRowGrid(name string, rows [][]string) *RowGrid {
	g := &RowGrid{name: name, cells: make([][]Value, len(rows))}
	for r, row := range rows {
		g.cells[r] = make([]Value, len(row))
		for c, raw := range row {
			g.cells[r][c] = ParseCell(raw)
		}
		if len(row) > g.maxCol {
			g.maxCol = len(row)
		}
	}
	return g
}

// Name returns the sheet name.
func (g *RowGrid) Name() string { return g.name }

// Cell returns the value at a 1-based position; out of range is Blank.
func (g *RowGrid) Cell(row, col int) Value {
	if row < 1 || row > len(g.cells) {
		return Blank()
	}
	cells := g.cells[row-1]
	if col < 1 || col > len(cells) {
		return Blank()
	}
	return cells[col-1]
}

// MaxRow returns the number of rows.
func (g *RowGrid) MaxRow() int { return len(g.cells) }

// MaxCol returns the widest row's length.
func (g *RowGrid) MaxCol() int { return g.maxCol }
