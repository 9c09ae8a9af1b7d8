package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// HashModelPrefix marks model names of the hashing embedder.
const HashModelPrefix = "hash:"

// HashEmbedder is a deterministic feature-hashing embedder. Each lowercased word
// adds ±1 to one dimension, so texts sharing words point in similar directions.
// It needs no model files and is used in tests and with provider "hash".
type HashEmbedder struct {
	modelName  string
	dimensions int
	cache      *EmbeddingCache
}

// NewHashEmbedder returns a hashing embedder reporting "hash:<modelName>".
func NewHashEmbedder(modelName string, dimensions, cacheSize int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	return &HashEmbedder{
		modelName:  HashModelPrefix + modelName,
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize),
	}
}

// Embed returns the hashed bag-of-words vector of text, L2-normalized.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	emb := make([]float32, e.dimensions)
	for _, w := range Words(text) {
		sum := wordHash(w)
		idx := int(sum % uint64(e.dimensions))
		if sum&(1<<63) != 0 {
			emb[idx] -= 1
		} else {
			emb[idx] += 1
		}
	}
	utils.NormalizeL2(emb)
	e.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (e *HashEmbedder) Dimensions() int { return e.dimensions }

func (e *HashEmbedder) CacheStats() (hits, misses uint64) { return e.cache.Stats() }

func (e *HashEmbedder) ModelName() string { return e.modelName }

func (e *HashEmbedder) Close() error { return nil }

// Words lowercases text and splits it into runs of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordHash(w string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(w))
	return h.Sum64()
}
