//go:build !cgo

package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/tansaku/internal/config"
)

// ErrONNXUnavailable is returned by NewONNXEmbedder in builds without cgo.
var ErrONNXUnavailable = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime, or set embedding.provider: hash")

// ONNXEmbedder is unusable without cgo.
type ONNXEmbedder struct{}

// NewONNXEmbedder returns ErrONNXUnavailable.
func NewONNXEmbedder(*config.EmbeddingConfig) (*ONNXEmbedder, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) ModelName() string { return "" }

func (e *ONNXEmbedder) CacheStats() (hits, misses uint64) { return 0, 0 }

func (e *ONNXEmbedder) Close() error { return nil }
