package vectorstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"policyrag/internal/domain"
)

const (
	// DataFile holds the gob-encoded chunks and vectors.
	DataFile = "index.gob"
	// ManifestFile describes DataFile and is written last.
	ManifestFile = "manifest.yaml"

	formatVersion = 1
)

// ErrNotFound means the directory holds no persisted index.
var ErrNotFound = errors.New("no persisted index")

// Manifest is the commit record of a persisted index.
type Manifest struct {
	Format    int       `yaml:"format"`
	ID        string    `yaml:"id"`
	Embedder  string    `yaml:"embedder"`
	Dimension int       `yaml:"dimension"`
	Chunks    int       `yaml:"chunks"`
	Checksum  string    `yaml:"checksum"`
	CreatedAt time.Time `yaml:"created_at"`
}

type payload struct {
	Chunks  []domain.Chunk
	Vectors [][]float32
}

// Persist writes the index into dir. The data file is written before the
// manifest so a missing manifest always marks an incomplete write.
func Persist(ix *Index, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload{Chunks: ix.chunks, Vectors: ix.vectors}); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	if err := writeFileAtomic(filepath.Join(dir, DataFile), buf.Bytes()); err != nil {
		return err
	}
	m := Manifest{
		Format:    formatVersion,
		ID:        ix.id,
		Embedder:  ix.embedder,
		Dimension: ix.dimension,
		Chunks:    len(ix.chunks),
		Checksum:  hex.EncodeToString(sum[:]),
		CreatedAt: ix.createdAt,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, ManifestFile), data)
}

// Load reads an index previously written by Persist. An absent or empty
// directory yields ErrNotFound; anything partial or inconsistent yields
// domain.ErrCorruptIndex.
func Load(dir string) (*Index, error) {
	if !Exists(dir) {
		return nil, ErrNotFound
	}
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %w", domain.ErrCorruptIndex, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %w", domain.ErrCorruptIndex, err)
	}
	if m.Format != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format %d", domain.ErrCorruptIndex, m.Format)
	}
	data, err := os.ReadFile(filepath.Join(dir, DataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read data: %w", domain.ErrCorruptIndex, err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != m.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", domain.ErrCorruptIndex)
	}
	var p payload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode data: %w", domain.ErrCorruptIndex, err)
	}
	if len(p.Chunks) != m.Chunks || len(p.Vectors) != m.Chunks {
		return nil, fmt.Errorf("%w: manifest lists %d chunks, data has %d chunks and %d vectors",
			domain.ErrCorruptIndex, m.Chunks, len(p.Chunks), len(p.Vectors))
	}
	if m.Chunks == 0 {
		return nil, fmt.Errorf("%w: empty index", domain.ErrCorruptIndex)
	}
	if err := validateVectors(p.Vectors, m.Chunks); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptIndex, err)
	}
	if len(p.Vectors[0]) != m.Dimension {
		return nil, fmt.Errorf("%w: dimension %d, manifest says %d", domain.ErrCorruptIndex, len(p.Vectors[0]), m.Dimension)
	}
	return &Index{
		id:        m.ID,
		embedder:  m.Embedder,
		dimension: m.Dimension,
		createdAt: m.CreatedAt,
		chunks:    p.Chunks,
		vectors:   p.Vectors,
	}, nil
}

// Exists reports whether dir holds any index artifact.
func Exists(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// Clear removes every entry inside dir, keeping dir itself.
func Clear(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read index dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(tmp), err)
	}
	_, err = f.Write(data)
	if err == nil {
		// The data must be on disk before the rename makes it visible.
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
