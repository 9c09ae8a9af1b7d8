package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/tansaku/internal/models"
)

var (
	// ErrIndexMissing means the vector index file does not exist.
	ErrIndexMissing = errors.New("vector index not found")
	// ErrMetaMissing means the index metadata file does not exist.
	ErrMetaMissing = errors.New("index metadata not found")
	// ErrIndexCorrupt means the index and its metadata do not describe the same vectors.
	ErrIndexCorrupt = errors.New("vector index corrupt")
	// ErrModelMismatch means the index was built with a different embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// RebuildHint tells the operator how to recreate missing artifacts.
const RebuildHint = "run `tansaku chunks` then `tansaku index`"

// MissingArtifactError names the missing half of an index pair.
type MissingArtifactError struct {
	Path string
	Kind error // ErrIndexMissing or ErrMetaMissing
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Path, RebuildHint)
}

func (e *MissingArtifactError) Unwrap() error { return e.Kind }

// ModelNamer is the part of an embedder CheckModel needs.
type ModelNamer interface {
	ModelName() string
}

// CheckModel fails when meta was built by a model other than the one at hand.
func CheckModel(meta *models.IndexMeta, embedder ModelNamer) error {
	if meta.Model != embedder.ModelName() {
		return fmt.Errorf("%w: index built with %q, embedder is %q (rebuild with `tansaku index`)",
			ErrModelMismatch, meta.Model, embedder.ModelName())
	}
	return nil
}

// SavePair writes the index and then its metadata. The metadata rename is the
// commit point: readers never see metadata for an index that was not written.
func SavePair(idx VectorIndex, meta *models.IndexMeta, indexPath, metaPath string) error {
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if idx.Size() != meta.Len() {
		return fmt.Errorf("%w: index has %d vectors, metadata %d entries", ErrIndexCorrupt, idx.Size(), meta.Len())
	}
	if err := idx.Save(indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	err := writeFileAtomic(metaPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(meta)
	})
	if err != nil {
		return fmt.Errorf("save index metadata: %w", err)
	}
	return nil
}

// ReadMeta reads an index metadata document.
func ReadMeta(metaPath string) (*models.IndexMeta, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Path: metaPath, Kind: ErrMetaMissing}
		}
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	var meta models.IndexMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrIndexCorrupt, metaPath, err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	return &meta, nil
}

// LoadPair loads an index and its metadata. Both files are checked before either is read.
// defaultType is used when the metadata does not record the index type.
func LoadPair(indexPath, metaPath, defaultType string) (VectorIndex, *models.IndexMeta, error) {
	if _, err := os.Stat(indexPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, &MissingArtifactError{Path: indexPath, Kind: ErrIndexMissing}
	}
	if _, err := os.Stat(metaPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, &MissingArtifactError{Path: metaPath, Kind: ErrMetaMissing}
	}
	meta, err := ReadMeta(metaPath)
	if err != nil {
		return nil, nil, err
	}
	indexType := meta.IndexType
	if indexType == "" {
		indexType = defaultType
	}
	idx, err := NewVectorIndex(indexType, meta.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Load(indexPath); err != nil {
		_ = idx.Close()
		return nil, nil, fmt.Errorf("load index: %w", err)
	}
	if idx.Size() != meta.Len() {
		_ = idx.Close()
		return nil, nil, fmt.Errorf("%w: index has %d vectors, metadata %d entries", ErrIndexCorrupt, idx.Size(), meta.Len())
	}
	return idx, meta, nil
}
