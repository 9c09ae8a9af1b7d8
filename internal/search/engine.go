// Package search answers semantic queries against a built index pair.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/corpus"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var (
	// ErrNotLoaded is returned by queries issued before a successful Load.
	ErrNotLoaded = errors.New("index not loaded")
	// ErrEmptyQuery is returned for empty or whitespace-only query text.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrNoKeywordIndex is returned by KeywordQuery when no keyword index is configured.
	ErrNoKeywordIndex = errors.New("keyword index not configured")
)

// Query modes reported in responses.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
)

// Text sources reported by Status.
const (
	TextFromMirror = "mirror"
	TextFromCorpus = "corpus"
	TextNone       = "none"
)

// ChunkLookup resolves chunk IDs to their text. Missing IDs are absent from the result.
type ChunkLookup interface {
	GetTexts(ctx context.Context, ids []string) (map[string]string, error)
}

// buildIDer is implemented by lookups that know which build they mirror.
type buildIDer interface {
	BuildID(ctx context.Context) (string, error)
}

// mapLookup serves chunk text loaded from the corpus file.
type mapLookup map[string]string

func (m mapLookup) GetTexts(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if text, ok := m[id]; ok {
			out[id] = text
		}
	}
	return out, nil
}

// Engine serves one query at a time against a loaded index pair.
// A new Engine is not loaded; Load moves it to the loaded state and may be called again
// to pick up a rebuilt index.
type Engine struct {
	cfg          *config.Config
	embedder     embedding.Embedder
	mirror       ChunkLookup
	keywordIndex keyword.KeywordIndex
	logger       *zap.Logger

	mu         sync.Mutex
	index      vector.VectorIndex
	meta       *models.IndexMeta
	positions  map[string]int
	sources    int
	texts      ChunkLookup
	textSource string
	loadErr    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithChunkLookup resolves chunk text through l (usually the SQLite mirror) instead of the corpus file.
func WithChunkLookup(l ChunkLookup) Option {
	return func(e *Engine) { e.mirror = l }
}

// WithKeywordIndex enables KeywordQuery.
func WithKeywordIndex(k keyword.KeywordIndex) Option {
	return func(e *Engine) { e.keywordIndex = k }
}

// NewEngine creates an engine that embeds queries with embedder.
func NewEngine(cfg *config.Config, embedder embedding.Embedder, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, embedder: embedder}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Load reads the index pair and resolves where chunk text comes from: the mirror when it
// holds the same build, else the corpus file, else nothing (metadata-only results).
// A model mismatch is returned but the pair stays loaded, so queries keep reporting it.
func (e *Engine) Load(ctx context.Context) error {
	idx, meta, err := vector.LoadPair(e.cfg.Storage.IndexPath, e.cfg.Storage.MetaPath, e.cfg.Vector.IndexType)
	if err != nil {
		return err
	}
	modelErr := vector.CheckModel(meta, e.embedder)

	positions := make(map[string]int, len(meta.IDs))
	files := make(map[string]struct{})
	for i, id := range meta.IDs {
		positions[id] = i
		files[meta.Meta[i].SourceFile] = struct{}{}
	}
	texts, source := e.resolveTexts(ctx, meta)

	e.mu.Lock()
	prev := e.index
	e.index = idx
	e.meta = meta
	e.positions = positions
	e.sources = len(files)
	e.texts = texts
	e.textSource = source
	e.loadErr = modelErr
	e.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			e.logger.Warn("close previous index", zap.Error(err))
		}
	}
	if modelErr != nil {
		return modelErr
	}
	e.logger.Info("index loaded",
		zap.Int("vectors", idx.Size()),
		zap.String("model", meta.Model),
		zap.String("build_id", meta.BuildID),
		zap.String("text_source", source),
	)
	return nil
}

func (e *Engine) resolveTexts(ctx context.Context, meta *models.IndexMeta) (ChunkLookup, string) {
	if e.mirror != nil {
		fresh := true
		if b, ok := e.mirror.(buildIDer); ok && meta.BuildID != "" {
			id, err := b.BuildID(ctx)
			if err != nil || id != meta.BuildID {
				fresh = false
				e.logger.Warn("chunk mirror does not match index, using corpus",
					zap.String("mirror_build_id", id), zap.String("index_build_id", meta.BuildID), zap.Error(err))
			}
		}
		if fresh {
			return e.mirror, TextFromMirror
		}
	}
	texts, err := corpus.LoadTexts(e.cfg.Storage.ChunksPath)
	if err != nil {
		e.logger.Warn("chunk text unavailable, serving citations only",
			zap.String("corpus", e.cfg.Storage.ChunksPath), zap.Error(err))
		return nil, TextNone
	}
	return mapLookup(texts), TextFromCorpus
}

// Query embeds text and returns the k nearest chunks. k <= 0 uses query.top_k and k is
// clamped to the index size.
func (e *Engine) Query(ctx context.Context, text string, k int) (*models.QueryResponse, error) {
	start := time.Now()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil, ErrNotLoaded
	}
	if err := vector.CheckModel(e.meta, e.embedder); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Query.Timeout)
	defer cancel()

	if k <= 0 {
		k = e.cfg.Query.TopK
	}
	k = min(k, e.index.Size())

	q, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := make([]float32, len(q))
	copy(vec, q)
	if utils.NormalizeL2(vec) == 0 {
		e.logger.Debug("query embedding is the zero vector", zap.String("query", text))
	}

	hits, err := e.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	positions := make([]int, len(hits))
	scores := make([]float64, len(hits))
	for i, h := range hits {
		positions[i] = h.Position
		scores[i] = h.Score
	}
	resp, err := e.respond(ctx, text, ModeSemantic, positions, scores)
	if err != nil {
		return nil, err
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// KeywordQuery runs a lexical query through the keyword index and resolves hits through
// the same metadata as Query. Hits the loaded index does not know are dropped.
func (e *Engine) KeywordQuery(ctx context.Context, text string, k int) (*models.QueryResponse, error) {
	start := time.Now()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if e.keywordIndex == nil {
		return nil, ErrNoKeywordIndex
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil, ErrNotLoaded
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Query.Timeout)
	defer cancel()

	if k <= 0 {
		k = e.cfg.Query.TopK
	}
	kc := e.cfg.Keyword
	hits, err := e.keywordIndex.Search(ctx, text, k, &keyword.SearchOptions{
		SourceBoost:  kc.SourceBoost,
		PhraseBoost:  kc.PhraseBoost,
		FuzzyEnabled: kc.Fuzzy,
		Fuzziness:    kc.Fuzziness,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	positions := make([]int, 0, len(hits))
	scores := make([]float64, 0, len(hits))
	for _, h := range hits {
		pos, ok := e.positions[h.ID]
		if !ok {
			e.logger.Debug("keyword hit not in index", zap.String("id", h.ID))
			continue
		}
		positions = append(positions, pos)
		scores = append(scores, h.Score)
	}
	resp, err := e.respond(ctx, text, ModeKeyword, positions, scores)
	if err != nil {
		return nil, err
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// respond builds ranked results for index positions. Callers hold e.mu.
func (e *Engine) respond(ctx context.Context, query, mode string, positions []int, scores []float64) (*models.QueryResponse, error) {
	ids := make([]string, len(positions))
	for i, pos := range positions {
		ids[i] = e.meta.IDs[pos]
	}
	var texts map[string]string
	if e.texts != nil {
		var err error
		texts, err = e.texts.GetTexts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve chunk text: %w", err)
		}
	}

	resp := &models.QueryResponse{
		Query:   query,
		Mode:    mode,
		Model:   e.meta.Model,
		Results: make([]*models.QueryResult, 0, len(positions)),
	}
	for i, pos := range positions {
		entry := e.meta.Meta[pos]
		r := &models.QueryResult{
			Rank:       i + 1,
			Score:      scores[i],
			ID:         entry.ID,
			SourceFile: entry.SourceFile,
			Page:       entry.Page,
			Type:       entry.Type,
			Citation:   models.Citation(entry.SourceFile, entry.Page),
		}
		if text, ok := texts[entry.ID]; ok {
			r.Preview = utils.Preview(text, e.cfg.Query.PreviewChars)
			r.TextAvailable = true
		} else {
			resp.Degraded = true
		}
		resp.Results = append(resp.Results, r)
	}
	resp.Total = len(resp.Results)
	return resp, nil
}

// Status reports what the engine currently serves.
func (e *Engine) Status() *models.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := &models.Status{Keyword: e.keywordIndex != nil}
	if e.index == nil {
		return st
	}
	st.Loaded = true
	st.Model = e.meta.Model
	st.IndexType = e.index.Type()
	st.BuildID = e.meta.BuildID
	st.CreatedAt = e.meta.CreatedAt
	st.Vectors = e.index.Size()
	st.Dimensions = e.index.Dimensions()
	st.Sources = e.sources
	st.TextSource = e.textSource
	if e.loadErr != nil {
		st.LoadError = e.loadErr.Error()
	}
	return st
}

// Close releases the loaded index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}
