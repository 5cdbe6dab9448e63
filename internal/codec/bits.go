package codec

// BitWriter appends bits MSB-first into a byte buffer. The last byte is
// zero-padded on the low end until it fills up.
type BitWriter struct {
	buf []byte
	n   int // bits written
}

// NewBitWriter returns a writer with room for sizeHint bits.
func NewBitWriter(sizeHint int) *BitWriter {
	return &BitWriter{buf: make([]byte, 0, (sizeHint+7)/8)}
}

// WriteBit appends a single bit (any non-zero value is 1).
func (w *BitWriter) WriteBit(bit uint8) {
	if w.n%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if bit != 0 {
		w.buf[len(w.buf)-1] |= 0x80 >> (w.n % 8)
	}
	w.n++
}

// WriteBits appends the low width bits of v, most significant first.
func (w *BitWriter) WriteBits(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		w.WriteBit(uint8(v>>i) & 1)
	}
}

// Len returns the number of bits written.
func (w *BitWriter) Len() int { return w.n }

// Bytes returns the packed buffer. It aliases the writer's storage.
func (w *BitWriter) Bytes() []byte { return w.buf }

// BitReader reads bits MSB-first from a byte slice.
type BitReader struct {
	data []byte
	pos  int
}

// NewBitReader returns a reader over data.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// Remaining returns the number of unread bits, padding included.
func (r *BitReader) Remaining() int { return len(r.data)*8 - r.pos }

// ReadBit returns the next bit. Reading past the end yields 0.
func (r *BitReader) ReadBit() uint8 {
	if r.pos >= len(r.data)*8 {
		return 0
	}
	bit := (r.data[r.pos/8] >> (7 - r.pos%8)) & 1
	r.pos++
	return bit
}

// ReadBits reads width bits (at most 64) into the low end of a uint64.
func (r *BitReader) ReadBits(width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<1 | uint64(r.ReadBit())
	}
	return v
}
