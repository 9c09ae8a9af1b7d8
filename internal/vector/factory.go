package vector

import (
	"errors"
	"fmt"
)

// IndexType names a VectorIndex implementation as recorded in index metadata.
type IndexType string

const (
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS needs -tags=faiss and the FAISS C library.
	IndexTypeFAISS IndexType = "faiss"
)

// ErrUnknownIndexType is returned for an index type no implementation answers to.
var ErrUnknownIndexType = errors.New("unknown vector index type")

// NewVectorIndex returns an empty index of the named type. An empty name means memory.
// Zero dimensions are taken from the file on Load.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("vector index dimensions must not be negative, got %d", dimensions)
	}
	switch IndexType(indexType) {
	case "", IndexTypeMemory:
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	}
	return nil, fmt.Errorf("%w %q (supported: memory, faiss)", ErrUnknownIndexType, indexType)
}

// CheckIndexType fails when indexType cannot be constructed in this build, so a
// misconfigured run stops before any extraction or embedding work.
func CheckIndexType(indexType string) error {
	idx, err := NewVectorIndex(indexType, 1)
	if err != nil {
		return err
	}
	return idx.Close()
}
