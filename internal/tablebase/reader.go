package tablebase

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kinarow/egtb/internal/board"
	"github.com/kinarow/egtb/internal/codec"
)

// Verification records what happened to the optional digest check.
type Verification uint8

const (
	NotChecked Verification = iota
	HashMatched
	HashMismatch
)

func (v Verification) String() string {
	switch v {
	case HashMatched:
		return "matched"
	case HashMismatch:
		return "mismatch"
	default:
		return "not-checked"
	}
}

// Reader is an in-memory view of one generated table. It is read-only after
// Open and safe for concurrent queries.
type Reader struct {
	path     string
	pieces   int
	cells    int
	entries  []codec.Entry
	table    map[codec.Key]codec.Outcome
	verified Verification
}

// Open loads the table for pieces. A piece count outside [0, cells] yields
// an empty table on which every query is a draw.
//
// When expectedHash is set the file digest is compared with it. A mismatch
// is logged and the file is loaded anyway; tooling that regenerates part of
// a set relies on reading past a stale digest. A missing or unreadable file
// is an error.
func Open(cfg Config, pieces int, expectedHash string) (*Reader, error) {
	cfg = cfg.withDefaults()
	tmpl, err := cfg.template()
	if err != nil {
		return nil, err
	}
	r := &Reader{
		pieces: pieces,
		cells:  tmpl.CellCount(),
		table:  make(map[codec.Key]codec.Outcome),
	}
	log := cfg.Logger.With().Int("pieces", pieces).Logger()

	if pieces < 0 || pieces > r.cells {
		log.Debug().Int("cells", r.cells).Msg("piece count out of range, using empty table")
		return r, nil
	}

	r.path = cfg.Path(pieces)
	log.Debug().Str("path", r.path).Msg("opening tablebase")
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open tablebase %s: %w", r.path, err)
	}

	if expectedHash != "" {
		r.verify(log, data, expectedHash)
	}

	r.entries = codec.UnpackEntries(data, codec.RecordBits(r.cells))
	for _, e := range r.entries {
		r.table[e.Key] = e.Outcome
	}
	log.Debug().
		Str("path", r.path).
		Int("entries", len(r.entries)).
		Msg("completed reading tablebase")
	return r, nil
}

func (r *Reader) verify(log zerolog.Logger, data []byte, expected string) {
	actual := HashBytes(data)
	if hashEqual(actual, expected) {
		r.verified = HashMatched
		log.Debug().Str("path", r.path).Msg("tablebase digest verified")
		return
	}
	r.verified = HashMismatch
	log.Warn().
		Str("path", r.path).
		Str("sha256", actual).
		Str("expected", expected).
		Msg("tablebase digest mismatch, loading anyway")
}

// OutcomeAt returns XWins or OWins for a stored position and Draw for
// anything else, including keys that could never occur in play.
func (r *Reader) OutcomeAt(b *board.Board) board.Result {
	outcome, ok := r.table[codec.EncodeKey(b)]
	if !ok {
		return board.Draw
	}
	if outcome == codec.FirstPlayer {
		return board.XWins
	}
	return board.OWins
}

// Pieces returns the piece count the reader was opened for.
func (r *Reader) Pieces() int { return r.pieces }

// Path returns the backing file, empty for an out-of-range table.
func (r *Reader) Path() string { return r.path }

// Len returns the number of distinct stored positions.
func (r *Reader) Len() int { return len(r.table) }

// Verified reports the outcome of the digest check.
func (r *Reader) Verified() Verification { return r.verified }

// Entries returns the records in file order.
func (r *Reader) Entries() []codec.Entry {
	return append([]codec.Entry(nil), r.entries...)
}
