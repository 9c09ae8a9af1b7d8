package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// DefaultBatchSize is the number of texts sent to the embedder at once.
const DefaultBatchSize = 64

// ProgressFunc is called after each batch with the number of texts embedded so far.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in batches of batchSize, preserving order. Every vector is
// L2-normalized and must have e.Dimensions() components.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int, progress ProgressFunc) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	dims := e.Dimensions()
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))
		batch, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(batch))
		}
		for i, v := range batch {
			if len(v) != dims {
				return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", start+i, len(v), dims)
			}
			vec := make([]float32, dims)
			copy(vec, v)
			utils.NormalizeL2(vec)
			out = append(out, vec)
		}
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return out, nil
}
