// Package archive bundles a complete tablebase set into a single file for
// transport.
//
// File structure:
//
//	Header (16 bytes):
//	  - Magic (4): "TTBA"
//	  - Version (2): 1
//	  - Flags (2): reserved
//	  - FileCount (4): number of bundled files
//	  - Checksum (4): CRC32 of uncompressed body
//	Body (compressed with zstd), FileCount records of:
//	  - NameLen (2), Name
//	  - HashLen (2), Hash (hex SHA-256 of Data)
//	  - DataLen (4), Data
//
// The manifest is always the first record.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kinarow/egtb/internal/tablebase"
)

const (
	Magic      = "TTBA"
	Version    = 1
	HeaderSize = 16
)

var (
	// ErrBadArchive is returned for a truncated or malformed archive.
	ErrBadArchive = errors.New("malformed tablebase archive")

	// ErrChecksum is returned when a body checksum or a file digest does
	// not match.
	ErrChecksum = errors.New("tablebase archive checksum mismatch")
)

// Header is the fixed archive header.
type Header struct {
	Magic     [4]byte
	Version   uint16
	Flags     uint16
	FileCount uint32
	Checksum  uint32
}

// File is one bundled file.
type File struct {
	Name   string
	SHA256 string
	Data   []byte
}

// Stats describes a written archive.
type Stats struct {
	Files            int
	UncompressedSize int
	CompressedSize   int
	CompressTime     time.Duration
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.FileCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.Checksum)
	return buf
}

func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrBadArchive)
	}
	h := &Header{
		Version:   binary.LittleEndian.Uint16(buf[4:6]),
		Flags:     binary.LittleEndian.Uint16(buf[6:8]),
		FileCount: binary.LittleEndian.Uint32(buf[8:12]),
		Checksum:  binary.LittleEndian.Uint32(buf[12:16]),
	}
	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrBadArchive, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadArchive, h.Version)
	}
	return h, nil
}

func encodeBody(files []File) []byte {
	size := 0
	for _, f := range files {
		size += 2 + len(f.Name) + 2 + len(f.SHA256) + 4 + len(f.Data)
	}
	body := make([]byte, 0, size)
	for _, f := range files {
		body = binary.LittleEndian.AppendUint16(body, uint16(len(f.Name)))
		body = append(body, f.Name...)
		body = binary.LittleEndian.AppendUint16(body, uint16(len(f.SHA256)))
		body = append(body, f.SHA256...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(f.Data)))
		body = append(body, f.Data...)
	}
	return body
}

// minRecordSize is the three length prefixes of an empty record.
const minRecordSize = 2 + 2 + 4

func decodeBody(body []byte, count uint32) ([]File, error) {
	if uint64(count)*minRecordSize > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %d files cannot fit in %d bytes", ErrBadArchive, count, len(body))
	}
	files := make([]File, 0, count)
	off := 0
	take := func(n int) ([]byte, error) {
		if n < 0 || off+n > len(body) {
			return nil, fmt.Errorf("%w: record %d truncated", ErrBadArchive, len(files))
		}
		b := body[off : off+n]
		off += n
		return b, nil
	}
	for i := uint32(0); i < count; i++ {
		var f File
		for _, s := range []*string{&f.Name, &f.SHA256} {
			n, err := take(2)
			if err != nil {
				return nil, err
			}
			v, err := take(int(binary.LittleEndian.Uint16(n)))
			if err != nil {
				return nil, err
			}
			*s = string(v)
		}
		n, err := take(4)
		if err != nil {
			return nil, err
		}
		data, err := take(int(binary.LittleEndian.Uint32(n)))
		if err != nil {
			return nil, err
		}
		f.Data = append([]byte(nil), data...)
		files = append(files, f)
	}
	if off != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadArchive, len(body)-off)
	}
	return files, nil
}

// Write bundles m and every table it lists from dir into a new archive at
// path. Each table is checked against its manifest digest first;
// a stale table is refused with ErrChecksum.
func Write(path, dir string, m *tablebase.Manifest) (*Stats, error) {
	manifestData, err := m.Encode()
	if err != nil {
		return nil, err
	}
	files := []File{{
		Name:   tablebase.ManifestName(m.Dims, m.RunLength),
		SHA256: tablebase.HashBytes(manifestData),
		Data:   manifestData,
	}}

	for _, t := range m.Tables {
		data, err := os.ReadFile(filepath.Join(dir, t.File))
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", t.File, err)
		}
		sum := tablebase.HashBytes(data)
		if !strings.EqualFold(sum, t.SHA256) {
			return nil, fmt.Errorf("%w: %s has %s, manifest says %s", ErrChecksum, t.File, sum, t.SHA256)
		}
		files = append(files, File{Name: t.File, SHA256: sum, Data: data})
	}

	body := encodeBody(files)
	header := Header{
		Version:   Version,
		FileCount: uint32(len(files)),
		Checksum:  crc32.ChecksumIEEE(body),
	}
	copy(header.Magic[:], Magic)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer encoder.Close()

	start := time.Now()
	compressed := encoder.EncodeAll(body, nil)
	stats := &Stats{
		Files:            len(files),
		UncompressedSize: len(body),
		CompressedSize:   len(compressed),
		CompressTime:     time.Since(start),
	}

	out := append(encodeHeader(&header), compressed...)
	if err := tablebase.WriteFileAtomic(path, out); err != nil {
		return nil, fmt.Errorf("write archive %s: %w", path, err)
	}
	return stats, nil
}

// Read decodes the archive at path and checks the body checksum and every
// file digest.
func Read(path string) ([]File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	body, err := decoder.DecodeAll(raw[HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", ErrBadArchive, err)
	}
	if crc32.ChecksumIEEE(body) != header.Checksum {
		return nil, fmt.Errorf("%w: body crc", ErrChecksum)
	}

	files, err := decodeBody(body, header.FileCount)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == "" || f.Name != filepath.Base(f.Name) || f.Name == "." || f.Name == ".." {
			return nil, fmt.Errorf("%w: bad file name %q", ErrBadArchive, f.Name)
		}
		if sum := tablebase.HashBytes(f.Data); !strings.EqualFold(sum, f.SHA256) {
			return nil, fmt.Errorf("%w: %s", ErrChecksum, f.Name)
		}
	}
	return files, nil
}

// Extract unpacks the archive at path into dir and returns the bundled
// manifest. Nothing is written unless the whole archive checks out.
func Extract(path, dir string) (*tablebase.Manifest, error) {
	files, err := Read(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 || !strings.HasSuffix(files[0].Name, ".manifest.yaml") {
		return nil, fmt.Errorf("%w: missing manifest", ErrBadArchive)
	}

	// tables first so the manifest never points at a missing file
	order := make([]File, 0, len(files))
	order = append(order, files[1:]...)
	order = append(order, files[0])
	for _, f := range order {
		if err := tablebase.WriteFileAtomic(filepath.Join(dir, f.Name), f.Data); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return tablebase.LoadManifestFile(filepath.Join(dir, files[0].Name))
}
