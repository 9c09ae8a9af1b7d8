// Package vector provides the exact inner-product index over chunk embeddings.
package vector

import "context"

// VectorIndex stores vectors by insertion position and answers top-k inner-product queries.
// Position i of the index corresponds to ids[i] and meta[i] of the index metadata.
type VectorIndex interface {
	// Add appends vectors; the first one gets position Size().
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns up to k hits by descending score, ties broken by position.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Save writes the index to a temporary file and renames it over path.
	Save(path string) error
	// Load replaces the contents with the index at path. A missing file wraps os.ErrNotExist.
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Hit is one search result.
type Hit struct {
	Position int
	Score    float64 // inner product; cosine similarity for normalized vectors
}
