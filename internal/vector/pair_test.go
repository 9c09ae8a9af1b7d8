package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/models"
)

type namer string

func (n namer) ModelName() string { return string(n) }

func buildPair(t *testing.T, dir string) (string, string) {
	t.Helper()
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), [][]float32{{1, 0}, {0, 1}}))

	meta := &models.IndexMeta{Model: "m", Dimensions: 2, IndexType: "memory", BuildID: "b1"}
	meta.Append(&models.ChunkRecord{ID: "a.pdf::p1::c1", SourceFile: "a.pdf", Page: models.PageRef(1), Type: models.TypePDF})
	meta.Append(&models.ChunkRecord{ID: "b.txt::c1", SourceFile: "b.txt", Type: models.TypeTXT})

	indexPath := filepath.Join(dir, "vector_store", "index.bin")
	metaPath := filepath.Join(dir, "vector_store", "meta.json")
	require.NoError(t, SavePair(idx, meta, indexPath, metaPath))
	return indexPath, metaPath
}

func TestSaveLoadPair(t *testing.T) {
	indexPath, metaPath := buildPair(t, t.TempDir())

	idx, meta, err := LoadPair(indexPath, metaPath, "memory")
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, []string{"a.pdf::p1::c1", "b.txt::c1"}, meta.IDs)
	assert.Nil(t, meta.Meta[1].Page)

	hits, err := idx.Search(context.Background(), []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "b.txt::c1", meta.IDs[hits[0].Position])

	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"page":null`)
}

func TestLoadPair_missingArtifacts(t *testing.T) {
	dir := t.TempDir()
	indexPath, metaPath := buildPair(t, dir)

	require.NoError(t, os.Remove(metaPath))
	_, _, err := LoadPair(indexPath, metaPath, "memory")
	require.ErrorIs(t, err, ErrMetaMissing)
	var missing *MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, metaPath, missing.Path)
	assert.Contains(t, err.Error(), "tansaku chunks")
	assert.Contains(t, err.Error(), "tansaku index")

	require.NoError(t, os.Remove(indexPath))
	_, _, err = LoadPair(indexPath, metaPath, "memory")
	assert.ErrorIs(t, err, ErrIndexMissing)
	assert.True(t, strings.Contains(err.Error(), indexPath))
}

func TestLoadPair_sizeMismatchIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	indexPath, metaPath := buildPair(t, dir)
	meta, err := ReadMeta(metaPath)
	require.NoError(t, err)
	meta.IDs = meta.IDs[:1]
	meta.Meta = meta.Meta[:1]

	small, _ := NewFlatIndex(2)
	require.NoError(t, small.Add(context.Background(), [][]float32{{1, 0}}))
	require.NoError(t, SavePair(small, meta, filepath.Join(dir, "other.bin"), metaPath))

	_, _, err = LoadPair(indexPath, metaPath, "memory")
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestSavePair_rejectsMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	meta := &models.IndexMeta{Model: "m"}
	meta.Append(&models.ChunkRecord{ID: "x"})
	dir := t.TempDir()
	err := SavePair(idx, meta, filepath.Join(dir, "i.bin"), filepath.Join(dir, "m.json"))
	assert.ErrorIs(t, err, ErrIndexCorrupt)
	_, statErr := os.Stat(filepath.Join(dir, "m.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadMeta_legacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	legacy := `{"model":"sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2","ids":["a::c1"],"meta":[{"id":"a::c1","source_file":"a","page":null,"type":"txt"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))
	meta, err := ReadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.Dimensions)
	assert.Empty(t, meta.IndexType)
}

func TestReadMeta_invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"m","ids":["a"],"meta":[]}`), 0600))
	_, err := ReadMeta(path)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestCheckModel(t *testing.T) {
	meta := &models.IndexMeta{Model: "model-a"}
	assert.NoError(t, CheckModel(meta, namer("model-a")))
	err := CheckModel(meta, namer("hash:model-a"))
	require.ErrorIs(t, err, ErrModelMismatch)
	assert.Contains(t, err.Error(), "model-a")
	assert.Contains(t, err.Error(), "hash:model-a")
}
