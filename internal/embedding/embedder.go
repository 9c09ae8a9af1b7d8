// Package embedding turns chunk text into unit-length vectors.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/internal/config"
)

// Embedder produces vector embeddings for text. ModelName identifies the vector
// space; indexes built by one model must not be queried with another.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// CacheReporter is implemented by embedders with an embedding cache.
type CacheReporter interface {
	CacheStats() (hits, misses uint64)
}

// New creates the embedder selected by cfg.Provider.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderHash:
		return NewHashEmbedder(cfg.ModelName, cfg.Dimensions, cfg.CacheSize), nil
	case config.ProviderONNX, "":
		e, err := NewONNXEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// ModelNameFor returns the model name an embedder built from cfg reports, without loading it.
func ModelNameFor(cfg *config.EmbeddingConfig) string {
	if cfg.Provider == config.ProviderHash {
		return HashModelPrefix + cfg.ModelName
	}
	return cfg.ModelName
}
