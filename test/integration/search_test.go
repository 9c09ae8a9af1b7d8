// Package integration exercises the pipeline with real storage, indexes and the HTTP server.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/watcher"
)

type pipeline struct {
	cfg     *config.Config
	indexer *indexer.Indexer
	engine  *search.Engine
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Ingest: config.IngestConfig{DocumentsDir: filepath.Join(dir, "docs")},
		Embedding: config.EmbeddingConfig{
			Provider: config.ProviderHash, ModelName: "integration", Dimensions: 256,
		},
		Storage: config.StorageConfig{
			ChunksPath:     filepath.Join(dir, "chunks.jsonl"),
			IndexPath:      filepath.Join(dir, "index.bin"),
			MetaPath:       filepath.Join(dir, "meta.json"),
			DatabasePath:   filepath.Join(dir, "chunks.db"),
			BleveIndexPath: filepath.Join(dir, "keyword.bleve"),
		},
		Watch: config.WatchConfig{Debounce: 50 * time.Millisecond},
	}
	config.ApplyDefaults(cfg)
	require.NoError(t, os.MkdirAll(cfg.Ingest.DocumentsDir, 0755))

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })
	embedder, err := embedding.New(&cfg.Embedding)
	require.NoError(t, err)

	p := &pipeline{
		cfg: cfg,
		indexer: indexer.NewIndexer(cfg, extract.NewDefaultRegistry(&cfg.Ingest), embedder,
			indexer.WithStorage(store), indexer.WithKeywordIndex(kw)),
		engine: search.NewEngine(cfg, embedder, search.WithChunkLookup(store), search.WithKeywordIndex(kw)),
	}
	t.Cleanup(func() { _ = p.engine.Close() })
	return p
}

func (p *pipeline) write(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.cfg.Ingest.DocumentsDir, name), []byte(body), 0644))
}

func postQuery(t *testing.T, baseURL, text string, k int) (int, *models.QueryResponse) {
	t.Helper()
	body, err := json.Marshal(models.QueryRequest{Query: text, K: k})
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out models.QueryResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, &out
}

func TestIntegration_ServerBeforeAndAfterBuild(t *testing.T) {
	p := newPipeline(t)
	ts := httptest.NewServer(server.NewServer(p.engine, p.cfg, zap.NewNop()).Handler())
	defer ts.Close()

	status, _ := postQuery(t, ts.URL, "machine learning", 3)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	p.write(t, "ml.txt", "Machine learning algorithms learn patterns from data.")
	p.write(t, "search.md", "Semantic search uses embeddings to find similar content.")
	_, _, err := p.indexer.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.engine.Load(context.Background()))

	status, resp := postQuery(t, ts.URL, "machine learning", 1)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ml.txt", resp.Results[0].SourceFile)
	assert.Equal(t, "ml.txt", resp.Results[0].Citation)
	assert.Contains(t, resp.Results[0].Preview, "Machine learning")
}

func TestIntegration_WatcherRebuildsAndReloads(t *testing.T) {
	p := newPipeline(t)
	p.write(t, "first.txt", "The warehouse stocktake found no discrepancy this quarter.")
	_, _, err := p.indexer.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.engine.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := watcher.NewWatcher(
		p.cfg.Ingest.DocumentsDir,
		discovery.NewWalker(p.cfg.Ingest.AllowedExtensions, p.cfg.Ingest.SkipExtensions),
		true,
		func(ctx context.Context) error {
			if _, _, err := p.indexer.Build(ctx); err != nil {
				return err
			}
			return p.engine.Load(ctx)
		},
		watcher.WithDebounce(p.cfg.Watch.Debounce),
	)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	ts := httptest.NewServer(server.NewServer(p.engine, p.cfg, zap.NewNop()).Handler())
	defer ts.Close()

	p.write(t, "second.txt", "Invoice approval workflow routes scanned invoices to cost center owners.")
	require.Eventually(t, func() bool {
		return p.engine.Status().Vectors == 2
	}, 10*time.Second, 20*time.Millisecond)

	status, resp := postQuery(t, ts.URL, "invoice approval workflow", 1)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "second.txt", resp.Results[0].SourceFile)
	assert.True(t, resp.Results[0].TextAvailable)

	kwResp, err := http.Get(ts.URL + "/api/v1/keyword?q=invoice")
	require.NoError(t, err)
	defer kwResp.Body.Close()
	var kw models.QueryResponse
	require.NoError(t, json.NewDecoder(kwResp.Body).Decode(&kw))
	require.NotEmpty(t, kw.Results)
	assert.Equal(t, "second.txt", kw.Results[0].SourceFile)

	require.NoError(t, os.Remove(filepath.Join(p.cfg.Ingest.DocumentsDir, "second.txt")))
	require.Eventually(t, func() bool {
		return p.engine.Status().Vectors == 1
	}, 10*time.Second, 20*time.Millisecond)
}

func TestIntegration_DegradedWithoutChunkText(t *testing.T) {
	p := newPipeline(t)
	p.write(t, "notes.txt", "Retention schedule moves records to the archive after seven years.")
	_, _, err := p.indexer.Build(context.Background())
	require.NoError(t, err)

	// Engine without the mirror falls back to the corpus; removing it leaves citations only.
	embedder, err := embedding.New(&p.cfg.Embedding)
	require.NoError(t, err)
	engine := search.NewEngine(p.cfg, embedder)
	defer engine.Close()
	require.NoError(t, os.Remove(p.cfg.Storage.ChunksPath))
	require.NoError(t, engine.Load(context.Background()))

	resp, err := engine.Query(context.Background(), "retention schedule", 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Degraded)
	assert.False(t, resp.Results[0].TextAvailable)
	assert.Equal(t, "notes.txt", resp.Results[0].Citation)
}
