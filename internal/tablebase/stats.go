package tablebase

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kinarow/egtb/internal/board"
)

// Stats summarizes one generation run.
type Stats struct {
	Layouts        uint64 // distinct layouts enumerated
	Illegal        uint64 // both players hold a line
	FullDraws      uint64 // full board, no winner
	LookaheadDraws uint64 // at least one move keeps the draw
	TerminalX      uint64 // X already holds a line
	TerminalO      uint64
	ForcedX        uint64 // decided by lookahead
	ForcedO        uint64
	Bytes          int
	Elapsed        time.Duration
}

func (s *Stats) add(c Classification) {
	s.Layouts++
	switch c.Class {
	case ClassIllegal:
		s.Illegal++
	case ClassFullDraw:
		s.FullDraws++
	case ClassDraw:
		s.LookaheadDraws++
	case ClassTerminal:
		if c.Winner == board.X {
			s.TerminalX++
		} else {
			s.TerminalO++
		}
	case ClassForced:
		if c.Winner == board.X {
			s.ForcedX++
		} else {
			s.ForcedO++
		}
	}
}

// Decisive returns the number of stored entries.
func (s Stats) Decisive() uint64 {
	return s.TerminalX + s.TerminalO + s.ForcedX + s.ForcedO
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("layouts", s.Layouts).
		Uint64("illegal", s.Illegal).
		Uint64("full_draws", s.FullDraws).
		Uint64("lookahead_draws", s.LookaheadDraws).
		Uint64("x_wins", s.TerminalX+s.ForcedX).
		Uint64("o_wins", s.TerminalO+s.ForcedO).
		Int("bytes", s.Bytes).
		Dur("elapsed", s.Elapsed)
}
