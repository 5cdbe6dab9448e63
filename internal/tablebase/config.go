// Package tablebase generates and reads k-in-a-row endgame tablebases.
//
// A tablebase for (dims, run length, pieces) maps every decisive position
// with that many marks to the player who wins it with perfect play. Draws
// are not stored. Tables are built by retrograde analysis: the table for p
// pieces is classified with one-ply lookahead into the table for p+1, so a
// full set is generated from the full board down to the empty one.
package tablebase

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kinarow/egtb/internal/board"
)

var (
	// ErrDimensions is returned for an unusable board shape.
	ErrDimensions = errors.New("invalid tablebase dimensions")

	// ErrPieces is returned when generation is asked for an impossible
	// piece count.
	ErrPieces = errors.New("invalid piece count")
)

// Config describes a tablebase family and where its files live.
type Config struct {
	Dir       string // directory holding .ttb files
	Dims      []int
	RunLength int
	Workers   int            // parallel classifiers (0 = runtime.NumCPU())
	Logger    zerolog.Logger // zero value discards
	Hashes    map[int]string // expected SHA-256 by piece count
}

func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// template validates the shape and returns an empty board of it.
func (c Config) template() (*board.Board, error) {
	b, err := board.New(c.Dims, c.RunLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDimensions, err)
	}
	return b, nil
}

// FileName returns the table file name, e.g. "3_3-3-2.ttb".
func FileName(dims []int, runLength, pieces int) string {
	return fmt.Sprintf("%s-%d-%d.ttb", joinDims(dims), runLength, pieces)
}

// Path returns the location of the table for pieces.
func (c Config) Path(pieces int) string {
	return filepath.Join(c.Dir, FileName(c.Dims, c.RunLength, pieces))
}

func joinDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "_")
}
