package board

import "errors"

// Mark is the content of a single cell.
type Mark uint8

const (
	Empty Mark = 0
	X     Mark = 1 // first player
	O     Mark = 2 // second player
)

// Opponent returns the other player. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Result is the game-theoretic state of a position.
type Result uint8

const (
	InProgress Result = iota
	XWins
	OWins
	Draw
)

// WinFor returns the winning result for player m.
func WinFor(m Mark) Result {
	switch m {
	case X:
		return XWins
	case O:
		return OWins
	default:
		return Draw
	}
}

func (r Result) String() string {
	switch r {
	case XWins:
		return "x-wins"
	case OWins:
		return "o-wins"
	case Draw:
		return "draw"
	default:
		return "in-progress"
	}
}

var (
	// ErrIllegalMove is returned when a mark is pushed onto an occupied or
	// out-of-bounds cell.
	ErrIllegalMove = errors.New("illegal move")

	// ErrConsistency is returned by Result when both players hold a winning
	// line. Normal play can never produce such a board.
	ErrConsistency = errors.New("both players have won")

	// ErrBadNotation is returned when a move string cannot be parsed.
	ErrBadNotation = errors.New("bad move notation")

	// ErrBadShape is returned for invalid dimensions or run length.
	ErrBadShape = errors.New("bad board shape")
)
