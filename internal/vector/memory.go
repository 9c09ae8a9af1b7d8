package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File layout of a flat index, little endian: magic, version, dimensions, count,
// then count*dimensions float32 values.
var flatMagic = [4]byte{'T', 'S', 'K', 'V'}

const flatVersion uint32 = 1

// flatHeaderSize is magic, version, dims and count.
const flatHeaderSize = 16

// FlatIndex is an exact brute-force inner-product index held in memory.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index. Zero dimensions means "taken from Load".
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (m *FlatIndex) Type() string {
	return string(IndexTypeMemory)
}

// Add appends vectors in order.
func (m *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions == 0 {
		return fmt.Errorf("index dimensions not set")
	}
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), m.dimensions)
		}
	}
	for _, v := range vectors {
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search scores every vector against query.
func (m *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(m.vectors))
	for i, vec := range m.vectors {
		hits[i] = Hit{Position: i, Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Save persists the index to path via a temporary file in the same directory.
func (m *FlatIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return writeFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		header := []any{flatMagic, flatVersion, uint32(m.dimensions), uint32(len(m.vectors))}
		for _, h := range header {
			if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
		for _, vec := range m.vectors {
			if _, err := bw.Write(float32SliceToBytes(vec)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
		return bw.Flush()
	})
}

// Load reads the index from path and replaces the in-memory contents.
func (m *FlatIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [4]byte
	var version, dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("%w: read magic: %v", ErrIndexCorrupt, err)
	}
	if magic != flatMagic {
		return fmt.Errorf("%w: not a flat index file", ErrIndexCorrupt)
	}
	for _, v := range []*uint32{&version, &dim, &n} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: read header: %v", ErrIndexCorrupt, err)
		}
	}
	if version != flatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrIndexCorrupt, version)
	}
	if dim == 0 {
		return fmt.Errorf("%w: zero dimensions", ErrIndexCorrupt)
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	if want := flatHeaderSize + uint64(n)*uint64(dim)*4; uint64(info.Size()) != want {
		return fmt.Errorf("%w: header declares %d vectors x %d dims (%d bytes), file has %d bytes",
			ErrIndexCorrupt, n, dim, want, info.Size())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions != 0 && int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	var vectors [][]float32
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: read vector %d: %v", ErrIndexCorrupt, i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after %d vectors", ErrIndexCorrupt, n)
	}
	m.dimensions = int(dim)
	m.vectors = vectors
	return nil
}

// Size returns the number of vectors in the index.
func (m *FlatIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Dimensions returns the vector dimension.
func (m *FlatIndex) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Close is a no-op for FlatIndex.
func (m *FlatIndex) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// writeFileAtomic writes path through a temporary sibling file that is synced and renamed.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
