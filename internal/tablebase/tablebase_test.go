package tablebase

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kinarow/egtb/internal/board"
	"github.com/kinarow/egtb/internal/codec"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Dir:       t.TempDir(),
		Dims:      []int{3, 3},
		RunLength: 3,
		Workers:   4,
		Logger:    zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel),
	}
}

func buildSet(t *testing.T, cfg Config) *Manifest {
	t.Helper()
	m, err := BuildSet(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, m.Tables, 10)
	return m
}

func TestFileName(t *testing.T) {
	require.Equal(t, "3_3-3-2.ttb", FileName([]int{3, 3}, 3, 2))
	require.Equal(t, "4_4_4-4-0.ttb", FileName([]int{4, 4, 4}, 4, 0))
	require.Equal(t, "7-3-5.ttb", FileName([]int{7}, 3, 5))
	require.Equal(t, "3_3-3.manifest.yaml", ManifestName([]int{3, 3}, 3))
}

func TestTicTacToeTwoPieces(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)

	r, err := Open(cfg, 2, m.HashFor(2))
	require.NoError(t, err)
	require.Equal(t, HashMatched, r.Verified())

	b, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)
	require.NoError(t, b.Push(0, 0))
	require.NoError(t, b.Push(0, 1))
	require.Equal(t, board.XWins, r.OutcomeAt(b))
}

func TestTicTacToeIsDraw(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)

	empty, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)
	r0, err := OpenFromManifest(cfg, m, 0)
	require.NoError(t, err)
	require.Equal(t, board.Draw, r0.OutcomeAt(empty))
	require.Zero(t, r0.Len())

	// a single X anywhere is still a draw
	r1, err := OpenFromManifest(cfg, m, 1)
	require.NoError(t, err)
	require.Zero(t, r1.Len())
}

// Every stored entry must be reproduced by a fresh one-ply classification
// against the next table, and terminal entries must agree with HasWon.
func TestEntriesReclassify(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)
	tmpl, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)

	for pieces := 0; pieces <= 9; pieces++ {
		r, err := OpenFromManifest(cfg, m, pieces)
		require.NoError(t, err)
		next, err := OpenFromManifest(cfg, m, pieces+1)
		require.NoError(t, err)
		require.Equal(t, r.Len(), len(r.Entries()), "duplicate keys in %d-piece table", pieces)

		for _, e := range r.Entries() {
			marks, err := codec.DecodeKey(e.Key, 9)
			require.NoError(t, err)
			b, err := tmpl.Snapshot(marks)
			require.NoError(t, err)
			require.Equal(t, pieces, b.MoveCount())

			outcome, ok := Classify(b, next).Stored()
			require.True(t, ok)
			require.Equal(t, e.Outcome, outcome)

			xWon, oWon := b.HasWon(board.X), b.HasWon(board.O)
			require.False(t, xWon && oWon)
			if xWon {
				require.Equal(t, codec.FirstPlayer, e.Outcome)
			}
			if oWon {
				require.Equal(t, codec.SecondPlayer, e.Outcome)
			}
		}
	}
}

// Every layout missing from a table must classify as a draw or illegal.
func TestTablesComplete(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)
	tmpl, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)

	for pieces := 0; pieces <= 9; pieces++ {
		r, err := OpenFromManifest(cfg, m, pieces)
		require.NoError(t, err)
		next, err := OpenFromManifest(cfg, m, pieces+1)
		require.NoError(t, err)

		stored := 0
		layout := initialLayout(9, pieces)
		for more := true; more; more = nextLayout(layout) {
			b, err := tmpl.Snapshot(layout)
			require.NoError(t, err)
			c := Classify(b, next)
			got := r.OutcomeAt(b)
			if outcome, ok := c.Stored(); ok {
				stored++
				want := board.XWins
				if outcome == codec.SecondPlayer {
					want = board.OWins
				}
				require.Equal(t, want, got)
			} else {
				require.Equal(t, board.Draw, got)
			}
		}
		require.Equal(t, r.Len(), stored)
	}
}

func TestLayoutEnumeration(t *testing.T) {
	for _, tc := range []struct{ cells, pieces int }{
		{9, 0}, {9, 1}, {9, 2}, {9, 5}, {9, 9}, {4, 3}, {8, 4},
	} {
		seen := make(map[string]bool)
		layout := initialLayout(tc.cells, tc.pieces)
		for more := true; more; more = nextLayout(layout) {
			var nx, no int
			for _, c := range layout {
				switch c {
				case board.X:
					nx++
				case board.O:
					no++
				}
			}
			require.Equal(t, (tc.pieces+1)/2, nx)
			require.Equal(t, tc.pieces/2, no)
			key := string(markBytes(layout))
			require.False(t, seen[key], "duplicate layout %v", layout)
			seen[key] = true
		}
		require.Equal(t, LayoutCount(tc.cells, tc.pieces), uint64(len(seen)), "cells=%d pieces=%d", tc.cells, tc.pieces)
	}
	require.Equal(t, uint64(72), LayoutCount(9, 2))
	require.Equal(t, uint64(126), LayoutCount(9, 9))
	require.Zero(t, LayoutCount(9, 10))
}

func markBytes(marks []board.Mark) []byte {
	out := make([]byte, len(marks))
	for i, m := range marks {
		out[i] = byte(m)
	}
	return out
}

func TestTamperedFileIsAdvisory(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)

	path := cfg.Path(2)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := append([]byte(nil), data...)
	tampered[len(tampered)-1] = 0x81
	require.NoError(t, os.WriteFile(path, tampered, 0644))

	var logs bytes.Buffer
	cfg.Logger = zerolog.New(&logs)
	r, err := Open(cfg, 2, m.HashFor(2))
	require.NoError(t, err)
	require.Equal(t, HashMismatch, r.Verified())
	require.Contains(t, logs.String(), "digest mismatch")

	b, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)
	for _, pos := range b.PossibleMoves() {
		c := b.Copy()
		require.NoError(t, c.Push(pos...))
		for _, reply := range c.PossibleMoves() {
			cc := c.Copy()
			require.NoError(t, cc.Push(reply...))
			require.NotPanics(t, func() { r.OutcomeAt(cc) })
		}
	}

	ok, actual, err := VerifyFile(path, m.HashFor(2))
	require.NoError(t, err)
	require.False(t, ok)
	require.NotEqual(t, m.HashFor(2), actual)
}

func TestGarbageFileDoesNotCrash(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Dir, 0755))
	require.NoError(t, os.WriteFile(cfg.Path(4), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}, 0644))

	r, err := Open(cfg, 4, "")
	require.NoError(t, err)
	require.Equal(t, NotChecked, r.Verified())
	require.Equal(t, 3, len(r.Entries()))

	b, _ := board.New(cfg.Dims, cfg.RunLength)
	require.Equal(t, board.Draw, r.OutcomeAt(b))
}

func TestOpenOutOfRange(t *testing.T) {
	cfg := testConfig(t)
	b, err := board.New(cfg.Dims, cfg.RunLength)
	require.NoError(t, err)

	for _, pieces := range []int{-1, 10, 100} {
		r, err := Open(cfg, pieces, "deadbeef")
		require.NoError(t, err)
		require.Zero(t, r.Len())
		require.Equal(t, board.Draw, r.OutcomeAt(b))
	}
}

func TestOpenMissingFile(t *testing.T) {
	cfg := testConfig(t)
	_, err := Open(cfg, 3, "")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenBadShape(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dims = []int{3, 0}
	_, err := Open(cfg, 0, "")
	require.ErrorIs(t, err, ErrDimensions)
	require.ErrorIs(t, err, board.ErrBadShape)
}

func TestGenerateRejectsPieces(t *testing.T) {
	cfg := testConfig(t)
	_, err := Generate(context.Background(), cfg, 10)
	require.ErrorIs(t, err, ErrPieces)
}

func TestGenerateNeedsNextTable(t *testing.T) {
	cfg := testConfig(t)
	_, err := Generate(context.Background(), cfg, 5)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGenerateDeterministicAcrossWorkers(t *testing.T) {
	a := testConfig(t)
	a.Workers = 1
	b := testConfig(t)
	b.Workers = 7

	ma := buildSet(t, a)
	mb := buildSet(t, b)
	require.Equal(t, ma.Hashes(), mb.Hashes())
}

func TestGenerateLeavesNoTempFiles(t *testing.T) {
	cfg := testConfig(t)
	buildSet(t, cfg)

	tmp, err := filepath.Glob(filepath.Join(cfg.Dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, tmp)

	ttb, err := filepath.Glob(filepath.Join(cfg.Dir, "*.ttb"))
	require.NoError(t, err)
	require.Len(t, ttb, 10)
}

func TestGenerateStats(t *testing.T) {
	cfg := testConfig(t)
	buildSet(t, cfg)

	// regenerating the full-board table needs no lookahead
	gen, err := Generate(context.Background(), cfg, 9)
	require.NoError(t, err)
	require.Equal(t, LayoutCount(9, 9), gen.Stats.Layouts)
	require.Zero(t, gen.Stats.LookaheadDraws)
	require.Zero(t, gen.Stats.ForcedX+gen.Stats.ForcedO)
	require.Equal(t, uint64(gen.Entries), gen.Stats.Decisive())
	require.Equal(t, gen.Stats.Layouts,
		gen.Stats.Decisive()+gen.Stats.Illegal+gen.Stats.FullDraws)
	require.Positive(t, gen.Stats.FullDraws)
}

func TestBuildSetCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildSet(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestManifestRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	m := buildSet(t, cfg)

	loaded, err := LoadManifest(cfg.Dir, cfg.Dims, cfg.RunLength)
	require.NoError(t, err)
	require.Equal(t, m.Dims, loaded.Dims)
	require.Equal(t, m.RunLength, loaded.RunLength)
	require.Equal(t, m.Hashes(), loaded.Hashes())
	require.True(t, m.CreatedAt.Equal(loaded.CreatedAt))
	for i, tbl := range m.Tables {
		require.Equal(t, i, tbl.Pieces)
	}

	for _, tbl := range loaded.Tables {
		require.Equal(t, FileName(cfg.Dims, cfg.RunLength, tbl.Pieces), tbl.File)
		ok, _, err := VerifyFile(filepath.Join(cfg.Dir, tbl.File), tbl.SHA256)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Empty(t, loaded.HashFor(42))
}

func TestSmallBoards(t *testing.T) {
	// on a 2x2 board with run 2 the first player always wins
	cfg := testConfig(t)
	cfg.Dims = []int{2, 2}
	cfg.RunLength = 2
	m, err := BuildSet(context.Background(), cfg)
	require.NoError(t, err)

	r, err := OpenFromManifest(cfg, m, 0)
	require.NoError(t, err)
	b, _ := board.New(cfg.Dims, cfg.RunLength)
	require.Equal(t, board.XWins, r.OutcomeAt(b))

	// 1x4 with run 3: one O in the middle blocks both lines
	cfg = testConfig(t)
	cfg.Dims = []int{4}
	cfg.RunLength = 3
	m, err = BuildSet(context.Background(), cfg)
	require.NoError(t, err)
	r, err = OpenFromManifest(cfg, m, 0)
	require.NoError(t, err)
	b, _ = board.New(cfg.Dims, cfg.RunLength)
	require.Equal(t, board.Draw, r.OutcomeAt(b))
}

func TestAppendEntries(t *testing.T) {
	tmpl, err := board.New([]int{3, 3}, 3)
	require.NoError(t, err)

	full := initialLayout(9, 2)
	batch := [][]board.Mark{full, full}
	results := []Classification{
		{Class: ClassForced, Winner: board.X},
		{Class: ClassDraw},
	}
	var stats Stats
	entries, err := appendEntries(nil, &stats, tmpl, batch, results)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, codec.FirstPlayer, entries[0].Outcome)
	require.Equal(t, uint64(2), stats.Layouts)

	short := [][]board.Mark{full[:4]}
	_, err = appendEntries(nil, &stats, tmpl, short, results[:1])
	require.ErrorIs(t, err, board.ErrBadShape)
}

func TestEncodeLeavesManifestUnsorted(t *testing.T) {
	m := &Manifest{
		Dims:      []int{3, 3},
		RunLength: 3,
		Tables:    []ManifestTable{{Pieces: 2}, {Pieces: 0}, {Pieces: 1}},
	}
	data, err := m.Encode()
	require.NoError(t, err)
	require.Equal(t, []ManifestTable{{Pieces: 2}, {Pieces: 0}, {Pieces: 1}}, m.Tables)

	path, err := m.Save(t.TempDir())
	require.NoError(t, err)
	loaded, err := LoadManifestFile(path)
	require.NoError(t, err)
	for i, tbl := range loaded.Tables {
		require.Equal(t, i, tbl.Pieces)
	}
	require.Equal(t, 2, m.Tables[0].Pieces)
	require.NotEmpty(t, data)
}
