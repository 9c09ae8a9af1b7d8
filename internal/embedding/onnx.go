//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// ONNXEmbedder runs a sentence-embedding model through ONNX Runtime. It requires CGO and
// the onnxruntime shared library. The session is bound to fixed [rows, maxTokens] input
// tensors; each Run embeds up to rows texts and unused rows are zero padding.
//
// Models that emit a per-token hidden state [rows, maxTokens, dims] are mean-pooled over
// the attention mask. Models that emit [rows, dims] are used as is.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	modelName  string
	dimensions int
	maxTokens  int
	rows       int
	pooled     bool
	cache      *EmbeddingCache
	tokenizer  TextEncoder

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// NewONNXEmbedder loads the tokenizer at cfg.TokenizerPath and the model at cfg.ModelPath.
// cfg.ModelName is the identity recorded in index metadata and cfg.BatchSize the number of
// rows per inference run.
func NewONNXEmbedder(cfg *config.EmbeddingConfig) (*ONNXEmbedder, error) {
	tk, err := LoadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, err
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect ONNX model %s: %w", cfg.ModelPath, err)
	}
	layout, err := inspectModel(tensorInfos(inputs), tensorInfos(outputs), cfg.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.ModelPath, err)
	}

	e := &ONNXEmbedder{
		modelName:  cfg.ModelName,
		dimensions: cfg.Dimensions,
		maxTokens:  max(cfg.MaxTokens, 2),
		rows:       max(cfg.BatchSize, 1),
		pooled:     layout.pooled,
		cache:      NewEmbeddingCache(cfg.CacheSize),
		tokenizer:  tk,
	}
	inShape := ort.NewShape(int64(e.rows), int64(e.maxTokens))
	cells := e.rows * e.maxTokens

	if e.inputIDs, err = ort.NewTensor(inShape, make([]int64, cells)); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewTensor(inShape, make([]int64, cells)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	inNames := []string{"input_ids", "attention_mask"}
	inTensors := []ort.ArbitraryTensor{e.inputIDs, e.attentionMask}
	if layout.tokenTypes {
		if e.tokenTypeIDs, err = ort.NewTensor(inShape, make([]int64, cells)); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		inNames = append(inNames, "token_type_ids")
		inTensors = append(inTensors, e.tokenTypeIDs)
	}

	outShape := ort.NewShape(int64(e.rows), int64(e.dimensions))
	outCells := e.rows * e.dimensions
	if e.pooled {
		outShape = ort.NewShape(int64(e.rows), int64(e.maxTokens), int64(e.dimensions))
		outCells *= e.maxTokens
	}
	if e.output, err = ort.NewTensor(outShape, make([]float32, outCells)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		inNames,
		[]string{layout.output},
		inTensors,
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", cfg.ModelPath, err)
	}
	return e, nil
}

func tensorInfos(list []ort.InputOutputInfo) []tensorInfo {
	out := make([]tensorInfo, len(list))
	for i, info := range list {
		out[i] = tensorInfo{Name: info.Name, Dims: []int64(info.Dimensions)}
	}
	return out
}

// Embed returns the embedding for text, using the cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in runs of up to the configured batch size. Cached texts are not
// sent to the model.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		pending = append(pending, i)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("ONNX embedder is closed")
	}
	for start := 0; start < len(pending); start += e.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.rows, len(pending))
		group := pending[start:end]
		batch := make([]string, len(group))
		for j, i := range group {
			batch[j] = texts[i]
		}
		vecs, err := e.run(batch)
		if err != nil {
			return nil, err
		}
		for j, i := range group {
			out[i] = vecs[j]
			e.cache.Set(texts[i], vecs[j])
		}
	}
	return out, nil
}

// run performs one inference over len(batch) <= rows texts. Caller holds e.mu.
func (e *ONNXEmbedder) run(batch []string) ([][]float32, error) {
	ids := e.inputIDs.GetData()
	mask := e.attentionMask.GetData()
	var types []int64
	if e.tokenTypeIDs != nil {
		types = e.tokenTypeIDs.GetData()
	}
	clear(ids)
	clear(mask)
	clear(types)
	for r, text := range batch {
		lo, hi := r*e.maxTokens, (r+1)*e.maxTokens
		var rowTypes []int64
		if types != nil {
			rowTypes = types[lo:hi]
		}
		if _, err := encodeRow(e.tokenizer, text, ids[lo:hi], mask[lo:hi], rowTypes); err != nil {
			return nil, err
		}
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := e.output.GetData()
	vecs := make([][]float32, len(batch))
	for r := range batch {
		var v []float32
		if e.pooled {
			span := e.maxTokens * e.dimensions
			v = meanPool(data[r*span:(r+1)*span], mask[r*e.maxTokens:(r+1)*e.maxTokens], e.dimensions)
		} else {
			v = make([]float32, e.dimensions)
			copy(v, data[r*e.dimensions:(r+1)*e.dimensions])
		}
		utils.NormalizeL2(v)
		vecs[r] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// CacheStats returns the embedding cache hit and miss counts.
func (e *ONNXEmbedder) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

// ModelName returns the configured model identity.
func (e *ONNXEmbedder) ModelName() string {
	return e.modelName
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = multierr.Append(err, e.session.Destroy())
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			err = multierr.Append(err, t.Destroy())
		}
	}
	if e.output != nil {
		err = multierr.Append(err, e.output.Destroy())
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.output = nil, nil, nil, nil
	return err
}
