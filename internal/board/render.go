package board

import "strings"

// String renders the board as text. Columns run along axis 0 and rows
// along axis 1; higher axes become stacked blocks, the last axis outermost.
// Blocks along axis a are separated by a lines of dashes.
//
//	 X | O
//	-------
//	 O | O
func (b *Board) String() string {
	pos := make([]int, len(b.dims))
	sep := strings.Repeat("-", 4*b.dims[0]-1)
	return b.render(len(b.dims)-1, pos, sep)
}

func (b *Board) render(axis int, pos []int, sep string) string {
	if axis == 0 {
		cells := make([]string, b.dims[0])
		for i := range cells {
			pos[0] = i
			cells[i] = " " + b.cells[b.index(pos)].String() + " "
		}
		return strings.Join(cells, "|")
	}
	parts := make([]string, b.dims[axis])
	for i := range parts {
		pos[axis] = i
		parts[i] = b.render(axis-1, pos, sep)
	}
	return strings.Join(parts, "\n"+strings.Repeat(sep+"\n", axis))
}
