package tablebase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kinarow/egtb/internal/board"
	"github.com/kinarow/egtb/internal/codec"
)

// Layouts are classified in batches so memory stays bounded while workers
// share the enumeration.
const batchSize = 4096

// Class says why a layout was or was not stored.
type Class uint8

const (
	ClassIllegal  Class = iota // both players hold a line; unreachable
	ClassFullDraw              // no empty cell and no winner
	ClassDraw                  // some move keeps the draw
	ClassTerminal              // a player already holds a line
	ClassForced                // the mover wins, or loses on every move
)

// Classification is the verdict for one layout.
type Classification struct {
	Class  Class
	Winner board.Mark // set for ClassTerminal and ClassForced
}

// Stored returns the outcome bit to record, or false for draws and
// unreachable layouts.
func (c Classification) Stored() (codec.Outcome, bool) {
	if c.Class != ClassTerminal && c.Class != ClassForced {
		return 0, false
	}
	if c.Winner == board.X {
		return codec.FirstPlayer, true
	}
	return codec.SecondPlayer, true
}

// Classify decides b by direct win detection, falling back to one-ply
// lookahead into next, the table holding one more mark.
func Classify(b *board.Board, next *Reader) Classification {
	xWon, oWon := b.HasWon(board.X), b.HasWon(board.O)
	switch {
	case xWon && oWon:
		return Classification{Class: ClassIllegal}
	case xWon:
		return Classification{Class: ClassTerminal, Winner: board.X}
	case oWon:
		return Classification{Class: ClassTerminal, Winner: board.O}
	case b.IsFull():
		return Classification{Class: ClassFullDraw}
	}

	mover := b.Turn()
	win := board.WinFor(mover)
	drawable := false
	for i := 0; i < b.CellCount(); i++ {
		if b.CellAt(i) != board.Empty {
			continue
		}
		child := b.Copy()
		if err := child.PushIndex(i); err != nil {
			continue
		}
		switch next.OutcomeAt(child) {
		case win:
			return Classification{Class: ClassForced, Winner: mover}
		case board.Draw:
			drawable = true
		}
	}
	if !drawable {
		return Classification{Class: ClassForced, Winner: mover.Opponent()}
	}
	return Classification{Class: ClassDraw}
}

// Generated describes a freshly written table.
type Generated struct {
	Path    string
	Pieces  int
	Hash    string // hex SHA-256 of the written file
	Entries int
	Stats   Stats
}

// Generate builds the table for pieces. The table for pieces+1 must already
// exist in cfg.Dir unless pieces is the cell count. Its expected digest is
// taken from cfg.Hashes when present.
func Generate(ctx context.Context, cfg Config, pieces int) (*Generated, error) {
	cfg = cfg.withDefaults()
	tmpl, err := cfg.template()
	if err != nil {
		return nil, err
	}
	cells := tmpl.CellCount()
	if pieces < 0 || pieces > cells {
		return nil, fmt.Errorf("%w: %d for %d cells", ErrPieces, pieces, cells)
	}

	log := cfg.Logger.With().Int("pieces", pieces).Logger()
	start := time.Now()

	log.Debug().Int("next", pieces+1).Msg("opening previous tablebase")
	next, err := Open(cfg, pieces+1, cfg.Hashes[pieces+1])
	if err != nil {
		return nil, err
	}

	log.Debug().Uint64("layouts", LayoutCount(cells, pieces)).Msg("generating tablebase")
	var (
		stats   Stats
		entries []codec.Entry
	)
	layout := initialLayout(cells, pieces)
	more := true
	batch := make([][]board.Mark, 0, batchSize)
	for more {
		batch = batch[:0]
		for more && len(batch) < batchSize {
			batch = append(batch, append([]board.Mark(nil), layout...))
			more = nextLayout(layout)
		}

		results, err := classifyBatch(ctx, cfg.Workers, tmpl, next, batch)
		if err != nil {
			return nil, fmt.Errorf("generate %d pieces: %w", pieces, err)
		}
		entries, err = appendEntries(entries, &stats, tmpl, batch, results)
		if err != nil {
			return nil, fmt.Errorf("generate %d pieces: %w", pieces, err)
		}
	}

	path := cfg.Path(pieces)
	log.Debug().Str("path", path).Int("entries", len(entries)).Msg("saving tablebase")
	data := codec.PackEntries(entries, codec.KeyBits(cells))
	if err := WriteFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("save tablebase %s: %w", path, err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash tablebase %s: %w", path, err)
	}
	stats.Bytes = len(data)
	stats.Elapsed = time.Since(start)

	log.Debug().Str("path", path).Str("sha256", hash).Msg("tablebase written")
	return &Generated{
		Path:    path,
		Pieces:  pieces,
		Hash:    hash,
		Entries: len(entries),
		Stats:   stats,
	}, nil
}

// classifyBatch splits batch into contiguous shards, one per worker.
// Results keep the batch order so output is independent of scheduling.
func classifyBatch(ctx context.Context, workers int, tmpl *board.Board, next *Reader, batch [][]board.Mark) ([]Classification, error) {
	results := make([]Classification, len(batch))
	if len(batch) == 0 {
		return results, nil
	}
	shard := (len(batch) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(batch); lo += shard {
		lo, hi := lo, min(lo+shard, len(batch))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				b, err := tmpl.Snapshot(batch[i])
				if err != nil {
					return err
				}
				results[i] = Classify(b, next)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// appendEntries records the stored classifications of batch, in order.
func appendEntries(entries []codec.Entry, stats *Stats, tmpl *board.Board, batch [][]board.Mark, results []Classification) ([]codec.Entry, error) {
	for i, c := range results {
		stats.add(c)
		outcome, ok := c.Stored()
		if !ok {
			continue
		}
		b, err := tmpl.Snapshot(batch[i])
		if err != nil {
			return entries, err
		}
		entries = append(entries, codec.Entry{Key: codec.EncodeKey(b), Outcome: outcome})
	}
	return entries, nil
}

// initialLayout returns the lexicographically smallest layout with
// ceil(pieces/2) X marks and floor(pieces/2) O marks.
func initialLayout(cells, pieces int) []board.Mark {
	nx, no := (pieces+1)/2, pieces/2
	layout := make([]board.Mark, cells)
	for i := cells - nx - no; i < cells-no; i++ {
		layout[i] = board.X
	}
	for i := cells - no; i < cells; i++ {
		layout[i] = board.O
	}
	return layout
}

// nextLayout advances a to the next distinct permutation in lexicographic
// order. Equal marks are never swapped with each other, so every layout is
// produced exactly once. It returns false after the last one.
func nextLayout(a []board.Mark) bool {
	i := len(a) - 2
	for i >= 0 && a[i] >= a[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(a) - 1
	for a[j] <= a[i] {
		j--
	}
	a[i], a[j] = a[j], a[i]
	for l, r := i+1, len(a)-1; l < r; l, r = l+1, r-1 {
		a[l], a[r] = a[r], a[l]
	}
	return true
}

// LayoutCount returns the number of distinct layouts for pieces marks:
// cells! / (empty! * x! * o!).
func LayoutCount(cells, pieces int) uint64 {
	if pieces < 0 || pieces > cells {
		return 0
	}
	nx, no := uint64((pieces+1)/2), uint64(pieces/2)
	return binomial(uint64(cells), nx+no) * binomial(nx+no, nx)
}

func binomial(n, k uint64) uint64 {
	if k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := uint64(1)
	for i := uint64(1); i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}
