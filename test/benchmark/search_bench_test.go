package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/pkg/utils"
)

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, _ := vector.NewFlatIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 10000)
	for i := range vecs {
		vecs[i] = make([]float32, 384)
		vecs[i][i%384] = 1
		vecs[i][(i*7)%384] += float32(i%13) / 13
		utils.NormalizeL2(vecs[i])
	}
	_ = idx.Add(ctx, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder("bench", 384, 0)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, fmt.Sprintf("benchmark query text for embedding %d", i))
	}
}

func BenchmarkChunker_Chunk(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "Paragraph %d of the quarterly report. Выручка выросла, расходы снизились.\n\n", i)
	}
	text := sb.String()
	c := indexer.NewChunker(indexer.WithMaxChars(1000), indexer.WithOverlap(200))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}

func BenchmarkEngineQuery(b *testing.B) {
	dir := b.TempDir()
	cfg := &config.Config{
		Ingest:    config.IngestConfig{DocumentsDir: filepath.Join(dir, "docs")},
		Embedding: config.EmbeddingConfig{Provider: config.ProviderHash, ModelName: "bench", Dimensions: 384},
		Storage: config.StorageConfig{
			ChunksPath: filepath.Join(dir, "chunks.jsonl"),
			IndexPath:  filepath.Join(dir, "index.bin"),
			MetaPath:   filepath.Join(dir, "meta.json"),
		},
	}
	config.ApplyDefaults(cfg)
	if err := os.MkdirAll(cfg.Ingest.DocumentsDir, 0755); err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		body := fmt.Sprintf("Document %d covers topic %d and the policy number %d for department %d.", i, i%17, i*31, i%5)
		if err := os.WriteFile(filepath.Join(cfg.Ingest.DocumentsDir, fmt.Sprintf("doc-%03d.txt", i)), []byte(body), 0644); err != nil {
			b.Fatal(err)
		}
	}
	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if _, _, err := indexer.NewIndexer(cfg, extract.NewDefaultRegistry(&cfg.Ingest), embedder).Build(ctx); err != nil {
		b.Fatal(err)
	}
	engine := search.NewEngine(cfg, embedder)
	defer engine.Close()
	if err := engine.Load(ctx); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Query(ctx, fmt.Sprintf("policy for department %d", i%5), 5); err != nil {
			b.Fatal(err)
		}
	}
}
