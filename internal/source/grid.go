package source

// Grid is a rectangular block of cells. Rows shorter than the widest row are
// padded with empty cells when the grid is built.
type Grid struct {
	rows  [][]Cell
	width int
}

// NewGrid builds a rectangular grid from possibly ragged rows.
func NewGrid(rows [][]Cell) Grid {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]Cell, len(rows))
	for i, r := range rows {
		padded := make([]Cell, width)
		copy(padded, r)
		out[i] = padded
	}
	return Grid{rows: out, width: width}
}

// FromValues classifies raw decoded values into a grid.
func FromValues(tokens Tokens, values [][]any) Grid {
	rows := make([][]Cell, len(values))
	for i, r := range values {
		cells := make([]Cell, len(r))
		for j, v := range r {
			cells[j] = tokens.Classify(v)
		}
		rows[i] = cells
	}
	return NewGrid(rows)
}

// Height is the number of rows.
func (g Grid) Height() int { return len(g.rows) }

// Width is the number of columns.
func (g Grid) Width() int { return g.width }

// Row returns row r, or nil when out of range.
func (g Grid) Row(r int) []Cell {
	if r < 0 || r >= len(g.rows) {
		return nil
	}
	return g.rows[r]
}

// Cell returns the cell at (r, c). Out-of-range positions are empty.
func (g Grid) Cell(r, c int) Cell {
	row := g.Row(r)
	if c < 0 || c >= len(row) {
		return Empty
	}
	return row[c]
}

// Texts returns the text of row r, for header matching.
func (g Grid) Texts(r int) []string {
	row := g.Row(r)
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Text
	}
	return out
}

// Slice returns the sub-grid selected by rng.
func (g Grid) Slice(rng Range) Grid {
	endRow := len(g.rows) - 1
	if rng.EndRow >= 0 && rng.EndRow < endRow {
		endRow = rng.EndRow
	}
	endCol := g.width - 1
	if rng.EndCol >= 0 && rng.EndCol < endCol {
		endCol = rng.EndCol
	}
	var rows [][]Cell
	for r := rng.StartRow; r <= endRow; r++ {
		if rng.StartCol > endCol {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, g.rows[r][rng.StartCol:endCol+1])
	}
	return NewGrid(rows)
}
