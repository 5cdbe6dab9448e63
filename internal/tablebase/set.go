package tablebase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest lists every table of a set together with its digest. It is the
// out-of-band carrier of the hashes readers verify against.
type Manifest struct {
	Dims      []int           `yaml:"dims"`
	RunLength int             `yaml:"run_length"`
	CreatedAt time.Time       `yaml:"created_at"`
	Tables    []ManifestTable `yaml:"tables"`
}

// ManifestTable describes one table file.
type ManifestTable struct {
	Pieces  int    `yaml:"pieces"`
	File    string `yaml:"file"`
	SHA256  string `yaml:"sha256"`
	Entries int    `yaml:"entries"`
	Bytes   int    `yaml:"bytes"`
}

// ManifestName returns the manifest file name, e.g. "3_3-3.manifest.yaml".
func ManifestName(dims []int, runLength int) string {
	return fmt.Sprintf("%s-%d.manifest.yaml", joinDims(dims), runLength)
}

// HashFor returns the recorded digest for pieces, or "" when unknown.
func (m *Manifest) HashFor(pieces int) string {
	for _, t := range m.Tables {
		if t.Pieces == pieces {
			return t.SHA256
		}
	}
	return ""
}

// Hashes returns the digests keyed by piece count.
func (m *Manifest) Hashes() map[int]string {
	out := make(map[int]string, len(m.Tables))
	for _, t := range m.Tables {
		out[t.Pieces] = t.SHA256
	}
	return out
}

// Encode returns the YAML form of m with tables in ascending piece order.
// m itself is left untouched.
func (m *Manifest) Encode() ([]byte, error) {
	out := *m
	out.Tables = append([]ManifestTable(nil), m.Tables...)
	sort.Slice(out.Tables, func(i, j int) bool { return out.Tables[i].Pieces < out.Tables[j].Pieces })
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// Save writes the manifest into dir.
func (m *Manifest) Save(dir string) (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ManifestName(m.Dims, m.RunLength))
	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("save manifest %s: %w", path, err)
	}
	return path, nil
}

// LoadManifest reads the manifest for (dims, runLength) from dir.
func LoadManifest(dir string, dims []int, runLength int) (*Manifest, error) {
	return LoadManifestFile(filepath.Join(dir, ManifestName(dims, runLength)))
}

// LoadManifestFile reads a manifest from path.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// BuildSet generates every table for cfg's shape, from the full board down
// to the empty one, strictly in that order: each step reads the table the
// previous step wrote. The resulting manifest lists tables in ascending piece
// order and is saved into cfg.Dir.
func BuildSet(ctx context.Context, cfg Config) (*Manifest, error) {
	cfg = cfg.withDefaults()
	tmpl, err := cfg.template()
	if err != nil {
		return nil, err
	}
	cells := tmpl.CellCount()

	m := &Manifest{
		Dims:      tmpl.Dims(),
		RunLength: cfg.RunLength,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	hashes := make(map[int]string, cells+1)
	for k, v := range cfg.Hashes {
		hashes[k] = v
	}
	cfg.Hashes = hashes

	cfg.Logger.Info().
		Ints("dims", m.Dims).
		Int("run_length", m.RunLength).
		Int("workers", cfg.Workers).
		Str("dir", cfg.Dir).
		Msg("building tablebase set")

	for pieces := cells; pieces >= 0; pieces-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen, err := Generate(ctx, cfg, pieces)
		if err != nil {
			return nil, err
		}
		hashes[pieces] = gen.Hash
		m.Tables = append(m.Tables, ManifestTable{
			Pieces:  pieces,
			File:    filepath.Base(gen.Path),
			SHA256:  gen.Hash,
			Entries: gen.Entries,
			Bytes:   gen.Stats.Bytes,
		})
		cfg.Logger.Info().
			Int("pieces", pieces).
			Int("entries", gen.Entries).
			Str("sha256", gen.Hash).
			EmbedObject(gen.Stats).
			Msg("tablebase generated")
	}

	sort.Slice(m.Tables, func(i, j int) bool { return m.Tables[i].Pieces < m.Tables[j].Pieces })
	path, err := m.Save(cfg.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info().Str("manifest", path).Msg("tablebase set complete")
	return m, nil
}

// OpenFromManifest opens the table for pieces, verifying it against the
// digest recorded in m.
func OpenFromManifest(cfg Config, m *Manifest, pieces int) (*Reader, error) {
	return Open(cfg, pieces, m.HashFor(pieces))
}
