package board

import (
	"fmt"
	"math"
)

// Board is an N-dimensional k-in-a-row grid.
//
// Cells are kept in a flat buffer in row-major order (last axis fastest).
// The same order is used for key encoding, so a board's layout and its
// tablebase key agree cell for cell.
type Board struct {
	dims      []int
	strides   []int
	runLength int
	dirs      [][]int // one representative per line direction

	cells     []Mark
	turn      Mark
	moveCount int
	moves     []Move
}

// New creates an empty board with the given extents. runLength marks in a
// straight line win.
func New(dims []int, runLength int) (*Board, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrBadShape)
	}
	if runLength < 1 {
		return nil, fmt.Errorf("%w: run length %d", ErrBadShape, runLength)
	}
	size := 1
	for _, d := range dims {
		if d < 1 {
			return nil, fmt.Errorf("%w: extent %d in %v", ErrBadShape, d, dims)
		}
		if size > math.MaxInt/d {
			return nil, fmt.Errorf("%w: %v has too many cells", ErrBadShape, dims)
		}
		size *= d
	}

	b := &Board{
		dims:      append([]int(nil), dims...),
		strides:   make([]int, len(dims)),
		runLength: runLength,
		dirs:      forwardDirections(len(dims)),
		cells:     make([]Mark, size),
		turn:      X,
	}
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		b.strides[i] = stride
		stride *= dims[i]
	}
	return b, nil
}

// FromCells builds a board snapshot from a flat cell layout. The side to
// move is X when both players have the same number of marks, O otherwise.
// Move history is empty.
func FromCells(dims []int, runLength int, cells []Mark) (*Board, error) {
	b, err := New(dims, runLength)
	if err != nil {
		return nil, err
	}
	return b.Snapshot(cells)
}

// Snapshot returns a new board with b's shape and the given flat layout,
// following the same turn rule as FromCells.
func (b *Board) Snapshot(cells []Mark) (*Board, error) {
	if len(cells) != len(b.cells) {
		return nil, fmt.Errorf("%w: %d cells for shape %v", ErrBadShape, len(cells), b.dims)
	}
	s := &Board{
		dims:      b.dims,
		strides:   b.strides,
		runLength: b.runLength,
		dirs:      b.dirs,
		cells:     append([]Mark(nil), cells...),
		turn:      X,
	}
	nx, no := s.Count(X), s.Count(O)
	s.moveCount = nx + no
	if nx != no {
		s.turn = O
	}
	return s, nil
}

// forwardDirections returns every vector in {-1,0,1}^n except zero whose
// first non-zero coordinate is positive.
func forwardDirections(n int) [][]int {
	total := 1
	for i := 0; i < n; i++ {
		total *= 3
	}
	var dirs [][]int
	for code := 0; code < total; code++ {
		dir := make([]int, n)
		c := code
		for i := n - 1; i >= 0; i-- {
			dir[i] = c%3 - 1
			c /= 3
		}
		for _, v := range dir {
			if v > 0 {
				dirs = append(dirs, dir)
				break
			}
			if v < 0 {
				break
			}
		}
	}
	return dirs
}

// Dims returns a copy of the board extents.
func (b *Board) Dims() []int { return append([]int(nil), b.dims...) }

// RunLength returns the number of marks in a row needed to win.
func (b *Board) RunLength() int { return b.runLength }

// CellCount returns the total number of cells.
func (b *Board) CellCount() int { return len(b.cells) }

// Turn returns the player to move.
func (b *Board) Turn() Mark { return b.turn }

// MoveCount returns the number of marks pushed (or present, for snapshots).
func (b *Board) MoveCount() int { return b.moveCount }

// Moves returns the move history.
func (b *Board) Moves() []Move { return append([]Move(nil), b.moves...) }

// Directions returns the forward direction set used for win detection.
func (b *Board) Directions() [][]int {
	out := make([][]int, len(b.dirs))
	for i, d := range b.dirs {
		out[i] = append([]int(nil), d...)
	}
	return out
}

// Cells returns a copy of the flat cell buffer.
func (b *Board) Cells() []Mark { return append([]Mark(nil), b.cells...) }

// CellAt returns the mark at a flat index.
func (b *Board) CellAt(i int) Mark { return b.cells[i] }

// At returns the mark at pos, or Empty when pos is out of bounds.
func (b *Board) At(pos ...int) Mark {
	if b.OutOfBounds(pos) {
		return Empty
	}
	return b.cells[b.index(pos)]
}

// Count returns the number of cells holding m.
func (b *Board) Count(m Mark) int {
	n := 0
	for _, c := range b.cells {
		if c == m {
			n++
		}
	}
	return n
}

// InBounds reports whether pos addresses a cell of the board.
func (b *Board) InBounds(pos []int) bool {
	if len(pos) != len(b.dims) {
		return false
	}
	for i, p := range pos {
		if p < 0 || p >= b.dims[i] {
			return false
		}
	}
	return true
}

// OutOfBounds is the complement of InBounds.
func (b *Board) OutOfBounds(pos []int) bool {
	return !b.InBounds(pos)
}

func (b *Board) index(pos []int) int {
	idx := 0
	for i, p := range pos {
		idx += p * b.strides[i]
	}
	return idx
}

// Coordinates converts a flat index to a coordinate tuple.
func (b *Board) Coordinates(idx int) []int {
	pos := make([]int, len(b.dims))
	b.unflatten(idx, pos)
	return pos
}

func (b *Board) unflatten(idx int, pos []int) {
	for i, s := range b.strides {
		pos[i] = idx / s
		idx %= s
	}
}

// Push places the current player's mark at coords.
func (b *Board) Push(coords ...int) error {
	if b.OutOfBounds(coords) {
		return fmt.Errorf("%w: %v is out of bounds for %v", ErrIllegalMove, coords, b.dims)
	}
	return b.pushIndex(b.index(coords), NewMove(coords...))
}

// PushMove is Push for a parsed Move.
func (b *Board) PushMove(m Move) error {
	return b.Push(m.coords...)
}

// PushIndex places the current player's mark at a flat index.
func (b *Board) PushIndex(idx int) error {
	if idx < 0 || idx >= len(b.cells) {
		return fmt.Errorf("%w: index %d out of range", ErrIllegalMove, idx)
	}
	return b.pushIndex(idx, NewMove(b.Coordinates(idx)...))
}

func (b *Board) pushIndex(idx int, m Move) error {
	if b.cells[idx] != Empty {
		return fmt.Errorf("%w: %s is occupied", ErrIllegalMove, m)
	}
	b.cells[idx] = b.turn
	b.moves = append(b.moves, m)
	b.turn = b.turn.Opponent()
	b.moveCount++
	return nil
}

// PossibleMoves returns the coordinates of every empty cell in flat order.
func (b *Board) PossibleMoves() [][]int {
	var out [][]int
	for i, c := range b.cells {
		if c == Empty {
			out = append(out, b.Coordinates(i))
		}
	}
	return out
}

// IsFull reports whether no empty cell remains.
func (b *Board) IsFull() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

// HasWon reports whether player holds runLength marks in a straight line.
func (b *Board) HasWon(player Mark) bool {
	if player == Empty {
		return false
	}
	n := len(b.dims)
	start := make([]int, n)
	for idx, c := range b.cells {
		if c != player {
			continue
		}
		b.unflatten(idx, start)
		for _, dir := range b.dirs {
			if b.lineFrom(start, dir, player) {
				return true
			}
		}
	}
	return false
}

// lineFrom checks the runLength-1 cells after start along dir.
func (b *Board) lineFrom(start, dir []int, player Mark) bool {
	for step := 1; step < b.runLength; step++ {
		idx := 0
		for i := range start {
			p := start[i] + step*dir[i]
			if p < 0 || p >= b.dims[i] {
				return false
			}
			idx += p * b.strides[i]
		}
		if b.cells[idx] != player {
			return false
		}
	}
	return true
}

// Result returns the state of the game. A board on which both players hold
// a winning line is corrupt and yields ErrConsistency.
func (b *Board) Result() (Result, error) {
	xWon, oWon := b.HasWon(X), b.HasWon(O)
	switch {
	case xWon && oWon:
		return InProgress, fmt.Errorf("%w: board %v", ErrConsistency, b.dims)
	case xWon:
		return XWins, nil
	case oWon:
		return OWins, nil
	case b.IsFull():
		return Draw, nil
	}
	return InProgress, nil
}

// Copy returns an independent snapshot of the board.
func (b *Board) Copy() *Board {
	return &Board{
		dims:      b.dims,
		strides:   b.strides,
		runLength: b.runLength,
		dirs:      b.dirs,
		cells:     append([]Mark(nil), b.cells...),
		turn:      b.turn,
		moveCount: b.moveCount,
		moves:     append([]Move(nil), b.moves...),
	}
}
