// Package indexer turns a document tree into a chunk corpus and the corpus into a vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/corpus"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/textnorm"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var (
	// ErrEmptyCorpus means the corpus holds no chunks to index.
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrNoEmbedder means an index build was requested from an indexer built without an embedder.
	ErrNoEmbedder = errors.New("no embedder configured")
)

// Indexer runs the two ingestion stages: BuildCorpus and BuildIndex.
type Indexer struct {
	cfg          *config.Config
	registry     *extract.Registry
	chunker      *Chunker
	embedder     embedding.Embedder
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for per-file failures and run summaries.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithStorage mirrors every indexed corpus into s.
func WithStorage(s storage.Storage) IndexerOption {
	return func(idx *Indexer) { idx.storage = s }
}

// WithKeywordIndex rebuilds k from every indexed corpus.
func WithKeywordIndex(k keyword.KeywordIndex) IndexerOption {
	return func(idx *Indexer) { idx.keywordIndex = k }
}

// NewIndexer creates an indexer. embedder may be nil when only BuildCorpus is used.
func NewIndexer(cfg *config.Config, registry *extract.Registry, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		cfg:      cfg,
		registry: registry,
		chunker: NewChunker(
			WithMaxChars(cfg.Chunking.MaxChars),
			WithOverlap(cfg.Chunking.OverlapOrDefault()),
		),
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// fileResult is the outcome of one file, kept in a slot indexed by discovery order.
type fileResult struct {
	path     string
	records  []models.ChunkRecord
	tooShort bool
	ocr      int
	skipped  int
	err      error
}

// BuildCorpus discovers, extracts and chunks every eligible document and replaces the
// corpus file. Files are extracted by up to ingest.workers goroutines; records are written
// in discovery order, so the output is identical for any worker count.
func (idx *Indexer) BuildCorpus(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	ingest := &idx.cfg.Ingest

	if missing := unservedExtensions(ingest.AllowedExtensions, idx.registry.Extensions()); len(missing) > 0 {
		idx.logger.Warn("allowed extensions have no extractor", zap.Strings("extensions", missing))
	}
	walker := discovery.NewWalker(ingest.AllowedExtensions, ingest.SkipExtensions, discovery.WithLogger(idx.logger))
	found, err := walker.Walk(ingest.DocumentsDir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(found.Files))
	for _, path := range found.Files {
		if _, ok := idx.registry.Lookup(filepath.Ext(path)); !ok {
			idx.logger.Debug("no extractor for file", zap.String("path", path))
			continue
		}
		files = append(files, path)
	}
	idx.logger.Info("documents discovered",
		zap.String("root", ingest.DocumentsDir),
		zap.Int("files", len(files)),
		zap.Strings("extensions", found.Extensions()),
		zap.Any("by_extension", found.ByExtension),
	)

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(ingest.Workers, 1))
	for i, path := range files {
		g.Go(func() error {
			results[i] = idx.processFile(gctx, path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w, err := corpus.NewWriter(idx.cfg.Storage.ChunksPath)
	if err != nil {
		return nil, err
	}
	summary := &models.RunSummary{
		FilesFound: len(found.Files),
		FilesByExt: found.ByExtension,
		Output:     idx.cfg.Storage.ChunksPath,
	}
	seen := make(map[string]string)
	for i := range results {
		res := &results[i]
		summary.OCRPages += res.ocr
		summary.SkippedPages += res.skipped
		if res.err == nil {
			res.err = checkIDs(res, seen)
		}
		if res.err != nil {
			summary.FilesFailed++
			idx.logger.Warn("skipping file", zap.String("path", res.path), zap.Error(res.err))
			continue
		}
		summary.FilesProcessed++
		if res.tooShort {
			summary.DocumentsTooShort++
			idx.logger.Debug("document too short", zap.String("path", res.path))
			continue
		}
		for _, rec := range res.records {
			if err := w.Append(rec); err != nil {
				w.Abort()
				return nil, err
			}
		}
	}
	summary.Chunks = w.Count()
	if err := w.Commit(); err != nil {
		return nil, err
	}
	summary.Elapsed = time.Since(start)

	idx.logger.Info("corpus built",
		zap.String("output", summary.Output),
		zap.Int("files_processed", summary.FilesProcessed),
		zap.Int("files_failed", summary.FilesFailed),
		zap.Int("documents_too_short", summary.DocumentsTooShort),
		zap.Int("chunks", summary.Chunks),
		zap.Int("ocr_pages", summary.OCRPages),
		zap.Int("skipped_pages", summary.SkippedPages),
		zap.Int("max_chars", idx.chunker.MaxChars()),
		zap.Int("overlap", idx.chunker.Overlap()),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// unservedExtensions returns the allowed extensions that no registered extractor handles.
func unservedExtensions(allowed, registered []string) []string {
	var out []string
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" && !slices.Contains(registered, ext) {
			out = append(out, ext)
		}
	}
	return out
}

// checkIDs rejects a file whose chunk IDs collide with an earlier file, such as two files
// with the same base name in different directories.
func checkIDs(res *fileResult, seen map[string]string) error {
	for _, rec := range res.records {
		if prev, ok := seen[rec.ID]; ok {
			return fmt.Errorf("%w: %s already produced by %s", corpus.ErrDuplicateID, rec.ID, prev)
		}
	}
	for _, rec := range res.records {
		seen[rec.ID] = res.path
	}
	return nil
}

// processFile extracts and chunks one file. Pages of a paginated file are handled in order.
func (idx *Indexer) processFile(ctx context.Context, path string) fileResult {
	res := fileResult{path: path}
	doc, err := idx.registry.Extract(ctx, path)
	if err != nil {
		res.err = err
		return res
	}
	res.ocr = doc.OCRPages
	res.skipped = doc.SkippedPages
	sourceFile := filepath.Base(path)

	if !doc.Type.Paginated() {
		text := textnorm.Normalize(doc.Text())
		if utils.RuneLen(text) < idx.cfg.Ingest.MinDocumentCharsOrDefault() {
			res.tooShort = true
			return res
		}
		res.records = idx.scopeRecords(0, text, sourceFile, doc.Type, "")
		return res
	}

	for _, sec := range doc.Sections {
		res.records = append(res.records, idx.scopeRecords(sec.Page, sec.Text, sourceFile, doc.Type, sec.Extraction)...)
	}
	return res
}

// scopeRecords chunks the text of one page (or a whole flat file) into records numbered from 1.
func (idx *Indexer) scopeRecords(page int, text, sourceFile string, t models.SourceType, extraction models.Extraction) []models.ChunkRecord {
	chunks := idx.chunker.Chunk(text)
	recs := make([]models.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		rec, ok := corpus.NewRecord(page, c, len(recs)+1, sourceFile, t, extraction)
		if !ok {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

// BuildIndex embeds the corpus, writes the vector index and its metadata as a pair, and
// refreshes the optional SQLite mirror and keyword index. Failures of the optional
// artifacts are logged and leave the pair in place.
func (idx *Indexer) BuildIndex(ctx context.Context) (summary *models.IndexSummary, err error) {
	if idx.embedder == nil {
		return nil, ErrNoEmbedder
	}
	start := time.Now()

	recs, err := corpus.ReadAll(idx.cfg.Storage.ChunksPath)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, idx.cfg.Storage.ChunksPath)
	}
	texts := make([]string, len(recs))
	for i := range recs {
		texts[i] = recs[i].Text
	}

	vectors, err := embedding.EmbedAll(ctx, idx.embedder, texts, idx.cfg.Embedding.BatchSize, func(done, total int) {
		idx.logger.Debug("embedded batch", zap.Int("done", done), zap.Int("total", total))
	})
	if err != nil {
		return nil, err
	}
	if cr, ok := idx.embedder.(embedding.CacheReporter); ok {
		hits, misses := cr.CacheStats()
		idx.logger.Debug("embedding cache", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
	}

	vi, err := vector.NewVectorIndex(idx.cfg.Vector.IndexType, idx.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, vi.Close()) }()
	if err := vi.Add(ctx, vectors); err != nil {
		return nil, fmt.Errorf("add vectors: %w", err)
	}

	meta := &models.IndexMeta{
		Model:      idx.embedder.ModelName(),
		Dimensions: idx.embedder.Dimensions(),
		IndexType:  vi.Type(),
		BuildID:    uuid.New().String(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for i := range recs {
		meta.Append(&recs[i])
	}
	if err := vector.SavePair(vi, meta, idx.cfg.Storage.IndexPath, idx.cfg.Storage.MetaPath); err != nil {
		return nil, err
	}

	summary = &models.IndexSummary{
		Vectors:    vi.Size(),
		Dimensions: meta.Dimensions,
		Model:      meta.Model,
		IndexType:  meta.IndexType,
		BuildID:    meta.BuildID,
		IndexPath:  idx.cfg.Storage.IndexPath,
		MetaPath:   idx.cfg.Storage.MetaPath,
	}
	if idx.storage != nil {
		if err := idx.storage.ReplaceChunks(ctx, meta.BuildID, recs); err != nil {
			idx.logger.Warn("chunk mirror not updated", zap.Error(err))
		} else {
			summary.Mirrored = true
		}
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Rebuild(ctx, recs); err != nil {
			idx.logger.Warn("keyword index not updated", zap.Error(err))
		} else {
			summary.Keyword = true
		}
	}
	summary.Elapsed = time.Since(start)

	idx.logger.Info("index built",
		zap.Int("vectors", summary.Vectors),
		zap.Int("dimensions", summary.Dimensions),
		zap.String("model", summary.Model),
		zap.String("index_type", summary.IndexType),
		zap.String("build_id", summary.BuildID),
		zap.Bool("mirrored", summary.Mirrored),
		zap.Bool("keyword_indexed", summary.Keyword),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// Build runs BuildCorpus followed by BuildIndex.
func (idx *Indexer) Build(ctx context.Context) (*models.RunSummary, *models.IndexSummary, error) {
	run, err := idx.BuildCorpus(ctx)
	if err != nil {
		return nil, nil, err
	}
	built, err := idx.BuildIndex(ctx)
	if err != nil {
		return run, nil, err
	}
	return run, built, nil
}
