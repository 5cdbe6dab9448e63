package board

import (
	"fmt"
	"strconv"
	"strings"
)

// Move is a cell coordinate together with its notation, e.g. "1-2".
// A Move is immutable; both views are fixed at construction.
type Move struct {
	coords   []int
	notation string
}

// NewMove creates a Move from coordinates.
func NewMove(coords ...int) Move {
	c := make([]int, len(coords))
	copy(c, coords)
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(v)
	}
	return Move{coords: c, notation: strings.Join(parts, "-")}
}

// ParseMove parses notation of the form "i-j-k" into a Move.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Move{}, fmt.Errorf("%w: empty string", ErrBadNotation)
	}
	parts := strings.Split(s, "-")
	coords := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Move{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
		}
		coords[i] = v
	}
	return NewMove(coords...), nil
}

// ParseMoves parses a comma separated list of moves ("0-0,1-1").
func ParseMoves(s string) ([]Move, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var moves []Move
	for _, part := range strings.Split(s, ",") {
		m, err := ParseMove(part)
		if err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// Coordinates returns a copy of the move's coordinates.
func (m Move) Coordinates() []int {
	c := make([]int, len(m.coords))
	copy(c, m.coords)
	return c
}

func (m Move) String() string {
	return m.notation
}
