package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var fixtureDocs = map[string]string{
	"sales.txt":     "Квартальный отчёт о продажах и выручке компании по всем регионам страны.",
	"warehouse.txt": "Meeting notes about the warehouse relocation and the new inventory schedule.",
	"recipe.html":   "<p>Recipe for borscht with beetroot, cabbage, potatoes and fresh dill.</p>",
}

type fixture struct {
	cfg      *config.Config
	embedder *embedding.HashEmbedder
	opts     []indexer.IndexerOption
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Ingest.DocumentsDir = filepath.Join(root, "docs")
	cfg.Storage.ChunksPath = filepath.Join(root, "chunks.jsonl")
	cfg.Storage.IndexPath = filepath.Join(root, "index.bin")
	cfg.Storage.MetaPath = filepath.Join(root, "meta.json")
	cfg.Embedding.Dimensions = 256
	require.NoError(t, os.MkdirAll(cfg.Ingest.DocumentsDir, 0755))
	for name, content := range fixtureDocs {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingest.DocumentsDir, name), []byte(content), 0644))
	}
	return &fixture{
		cfg:      cfg,
		embedder: embedding.NewHashEmbedder(cfg.Embedding.ModelName, cfg.Embedding.Dimensions, 100),
	}
}

func (f *fixture) build(t *testing.T) {
	t.Helper()
	idx := indexer.NewIndexer(f.cfg, extract.NewDefaultRegistry(&f.cfg.Ingest), f.embedder, f.opts...)
	_, _, err := idx.Build(context.Background())
	require.NoError(t, err)
}

func (f *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(f.cfg, f.embedder, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_QueryBeforeLoad(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	_, err := e.Query(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, e.Status().Loaded)
}

func TestEngine_LoadMissingArtifacts(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	err := e.Load(context.Background())
	require.ErrorIs(t, err, vector.ErrIndexMissing)
	assert.Contains(t, err.Error(), vector.RebuildHint)

	f.build(t)
	require.NoError(t, os.Remove(f.cfg.Storage.MetaPath))
	err = e.Load(context.Background())
	require.ErrorIs(t, err, vector.ErrMetaMissing)
	var missing *vector.MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, f.cfg.Storage.MetaPath, missing.Path)
}

func TestEngine_SelfQuery(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))

	resp, err := e.Query(context.Background(), fixtureDocs["warehouse.txt"], 2)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	top := resp.Results[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "warehouse.txt::c1", top.ID)
	assert.Equal(t, "warehouse.txt", top.Citation)
	assert.Nil(t, top.Page)
	assert.InDelta(t, 1.0, top.Score, 1e-4)
	assert.True(t, top.TextAvailable)
	assert.Equal(t, fixtureDocs["warehouse.txt"], top.Preview)
	assert.False(t, resp.Degraded)
	assert.Equal(t, ModeSemantic, resp.Mode)
	assert.GreaterOrEqual(t, top.Score, resp.Results[1].Score)

	st := e.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, 3, st.Vectors)
	assert.Equal(t, 3, st.Sources)
	assert.Equal(t, TextFromCorpus, st.TextSource)
}

func TestEngine_KClamping(t *testing.T) {
	f := newFixture(t)
	f.cfg.Query.TopK = 2
	f.build(t)
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))

	resp, err := e.Query(context.Background(), "inventory", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)

	resp, err = e.Query(context.Background(), "inventory", 100)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
}

func TestEngine_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := e.Query(context.Background(), q, 3)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
}

func TestEngine_PreviewTruncated(t *testing.T) {
	f := newFixture(t)
	f.cfg.Query.PreviewChars = 10
	f.build(t)
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))

	resp, err := e.Query(context.Background(), fixtureDocs["sales.txt"], 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Квартальны"+utils.Ellipsis, resp.Results[0].Preview)
}

func TestEngine_ModelMismatch(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	other := embedding.NewHashEmbedder("another-model", f.cfg.Embedding.Dimensions, 10)
	e := NewEngine(f.cfg, other)
	defer e.Close()

	err := e.Load(context.Background())
	require.ErrorIs(t, err, vector.ErrModelMismatch)
	_, err = e.Query(context.Background(), "inventory", 3)
	require.ErrorIs(t, err, vector.ErrModelMismatch)
	assert.Contains(t, err.Error(), "another-model")
	assert.NotEmpty(t, e.Status().LoadError)
}

func TestEngine_DegradedWithoutCorpus(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	require.NoError(t, os.Remove(f.cfg.Storage.ChunksPath))
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))

	resp, err := e.Query(context.Background(), "borscht beetroot", 3)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	for _, r := range resp.Results {
		assert.False(t, r.TextAvailable)
		assert.Empty(t, r.Preview)
		assert.NotEmpty(t, r.Citation)
	}
	assert.Equal(t, TextNone, e.Status().TextSource)
}

func TestEngine_MirrorLookup(t *testing.T) {
	f := newFixture(t)
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer store.Close()
	f.opts = append(f.opts, indexer.WithStorage(store))
	f.build(t)
	require.NoError(t, os.Remove(f.cfg.Storage.ChunksPath))

	e := f.engine(t, WithChunkLookup(store))
	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, TextFromMirror, e.Status().TextSource)

	resp, err := e.Query(context.Background(), fixtureDocs["recipe.html"], 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].TextAvailable)
	assert.True(t, strings.HasPrefix(resp.Results[0].Preview, "Recipe for borscht"))
}

func TestEngine_StaleMirrorFallsBackToCorpus(t *testing.T) {
	f := newFixture(t)
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.ReplaceChunks(context.Background(), "older-build", nil))
	f.build(t)

	e := f.engine(t, WithChunkLookup(store))
	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, TextFromCorpus, e.Status().TextSource)
}

func TestEngine_KeywordQuery(t *testing.T) {
	f := newFixture(t)
	kw, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	require.NoError(t, err)
	defer kw.Close()
	f.opts = append(f.opts, indexer.WithKeywordIndex(kw))
	f.build(t)

	plain := f.engine(t)
	require.NoError(t, plain.Load(context.Background()))
	_, err = plain.KeywordQuery(context.Background(), "borscht", 3)
	assert.ErrorIs(t, err, ErrNoKeywordIndex)

	e := f.engine(t, WithKeywordIndex(kw))
	require.NoError(t, e.Load(context.Background()))
	resp, err := e.KeywordQuery(context.Background(), "borscht", 3)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "recipe.html::c1", resp.Results[0].ID)
	assert.Equal(t, ModeKeyword, resp.Mode)
	assert.True(t, resp.Results[0].TextAvailable)
}

func TestEngine_KeywordQueryFuzzy(t *testing.T) {
	f := newFixture(t)
	kw, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	require.NoError(t, err)
	defer kw.Close()
	f.opts = append(f.opts, indexer.WithKeywordIndex(kw))
	f.build(t)

	e := f.engine(t, WithKeywordIndex(kw))
	require.NoError(t, e.Load(context.Background()))
	resp, err := e.KeywordQuery(context.Background(), "borsht", 3)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	f.cfg.Keyword.Fuzzy = true
	f.cfg.Keyword.Fuzziness = 1
	resp, err = e.KeywordQuery(context.Background(), "borsht", 3)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "recipe.html", resp.Results[0].SourceFile)
}

type blockingEmbedder struct {
	*embedding.HashEmbedder
}

func (b blockingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_QueryTimeout(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	f.cfg.Query.Timeout = 20 * time.Millisecond
	e := NewEngine(f.cfg, blockingEmbedder{f.embedder})
	defer e.Close()
	require.NoError(t, e.Load(context.Background()))

	_, err := e.Query(context.Background(), "inventory", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_Reload(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	e := f.engine(t)
	require.NoError(t, e.Load(context.Background()))
	first := e.Status().BuildID

	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Ingest.DocumentsDir, "extra.txt"),
		[]byte("An additional document about solar panels and batteries."), 0644))
	f.build(t)
	require.NoError(t, e.Load(context.Background()))
	st := e.Status()
	assert.NotEqual(t, first, st.BuildID)
	assert.Equal(t, 4, st.Vectors)
}
