// Package codec converts boards to fixed-width bit keys and packs tablebase
// entries into a continuous, non byte-aligned bit stream.
//
// Key layout: 2 bits per cell in flat (row-major) order, 00 empty, 01 X,
// 10 O. A record is the key followed by one outcome bit. Records are
// concatenated without alignment and the stream is cut into bytes MSB-first;
// the last byte is zero-padded on the low end.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kinarow/egtb/internal/board"
)

// ErrBadKey is returned when a key cannot be decoded into cells.
var ErrBadKey = errors.New("bad key")

const (
	cellEmpty = 0b00
	cellX     = 0b01
	cellO     = 0b10
)

// Key is a packed board encoding usable as a map key.
type Key string

// Outcome is the single bit stored with every entry.
type Outcome uint8

const (
	FirstPlayer  Outcome = 0 // decisive win for X
	SecondPlayer Outcome = 1 // decisive win for O
)

// Entry is one tablebase record.
type Entry struct {
	Key     Key
	Outcome Outcome
}

// KeyBits returns the key width for a board with cells cells.
func KeyBits(cells int) int { return 2 * cells }

// RecordBits returns the record width (key plus outcome bit).
func RecordBits(cells int) int { return 2*cells + 1 }

// EncodeKey returns the key for b's current layout. Move history does not
// influence the result.
func EncodeKey(b *board.Board) Key {
	n := b.CellCount()
	w := NewBitWriter(KeyBits(n))
	for i := 0; i < n; i++ {
		switch b.CellAt(i) {
		case board.X:
			w.WriteBits(cellX, 2)
		case board.O:
			w.WriteBits(cellO, 2)
		default:
			w.WriteBits(cellEmpty, 2)
		}
	}
	return Key(w.Bytes())
}

// DecodeKey expands a key back into cells marks.
func DecodeKey(k Key, cells int) ([]board.Mark, error) {
	if len(k)*8 < KeyBits(cells) {
		return nil, fmt.Errorf("%w: %d bytes for %d cells", ErrBadKey, len(k), cells)
	}
	r := NewBitReader([]byte(k))
	marks := make([]board.Mark, cells)
	for i := range marks {
		switch r.ReadBits(2) {
		case cellEmpty:
			marks[i] = board.Empty
		case cellX:
			marks[i] = board.X
		case cellO:
			marks[i] = board.O
		default:
			return nil, fmt.Errorf("%w: reserved code at cell %d", ErrBadKey, i)
		}
	}
	return marks, nil
}

// Counts returns the number of X and O marks encoded in k.
func Counts(k Key, cells int) (x, o int, err error) {
	marks, err := DecodeKey(k, cells)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range marks {
		switch m {
		case board.X:
			x++
		case board.O:
			o++
		}
	}
	return x, o, nil
}

// Bits renders the first n bits of k as a string of '0' and '1'.
func (k Key) Bits(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	r := NewBitReader([]byte(k))
	for i := 0; i < n; i++ {
		sb.WriteByte('0' + r.ReadBit())
	}
	return sb.String()
}

// PackEntries serializes entries whose keys are keyBits wide.
func PackEntries(entries []Entry, keyBits int) []byte {
	w := NewBitWriter(len(entries) * (keyBits + 1))
	for _, e := range entries {
		r := NewBitReader([]byte(e.Key))
		for i := 0; i < keyBits; i++ {
			w.WriteBit(r.ReadBit())
		}
		w.WriteBit(uint8(e.Outcome))
	}
	return w.Bytes()
}

// UnpackEntries slices data into recordBits wide records. A trailing chunk
// shorter than recordBits is padding and is dropped. A stream whose padding
// happens to hold a whole all-zero record cannot be told apart from data;
// the format carries no length to resolve it.
func UnpackEntries(data []byte, recordBits int) []Entry {
	if recordBits < 2 {
		return nil
	}
	keyBits := recordBits - 1
	count := len(data) * 8 / recordBits
	entries := make([]Entry, 0, count)
	r := NewBitReader(data)
	for i := 0; i < count; i++ {
		w := NewBitWriter(keyBits)
		for j := 0; j < keyBits; j++ {
			w.WriteBit(r.ReadBit())
		}
		entries = append(entries, Entry{
			Key:     Key(w.Bytes()),
			Outcome: Outcome(r.ReadBit()),
		})
	}
	return entries
}
