// Package keyword provides a lexical (BM25) index over corpus chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/tansaku/internal/models"
)

// SearchOptions tunes Search. A nil value or zero fields give a plain match query over
// chunk text and source file name.
type SearchOptions struct {
	SourceBoost  float64 // weight of matches in the file name; <= 1 disables
	PhraseBoost  float64 // bonus when query terms are adjacent; <= 1 disables
	FuzzyEnabled bool
	Fuzziness    int // max edit distance per term, 1 or 2; 0 means 2
}

// KeywordIndex is a lexical index keyed by chunk ID. It is rebuilt wholesale from the
// corpus on every index build.
type KeywordIndex interface {
	Rebuild(ctx context.Context, recs []models.ChunkRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a chunk ID with its Bleve score.
type KeywordResult struct {
	ID    string
	Score float64
}
