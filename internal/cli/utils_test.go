package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/models"
)

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Query: "отчёт",
		Mode:  "semantic",
		Results: []*models.QueryResult{
			{Rank: 1, Score: 0.91234, ID: "a.pdf::p3::c1", SourceFile: "a.pdf", Page: models.PageRef(3), Type: models.TypePDF,
				Citation: "a.pdf, page 3", Preview: "Квартальный отчёт", TextAvailable: true},
			{Rank: 2, Score: 0.5, ID: "b.txt::c2", SourceFile: "b.txt", Type: models.TypeTXT, Citation: "b.txt"},
		},
		Total:     2,
		QueryTime: 12,
	}
}

func TestWriteQueryResults_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, sampleResponse(), OutputText))
	want := "\n=== TOP RESULTS ===\n" +
		"\n#1  score=0.9123\nCITE: a.pdf, page 3\nКвартальный отчёт\n" +
		"\n#2  score=0.5000\nCITE: b.txt\n(text unavailable, id b.txt::c2)\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteQueryResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, &models.QueryResponse{}, OutputText))
	assert.Contains(t, buf.String(), "(no results)")
}

func TestWriteQueryResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, sampleResponse(), OutputJSON))
	var decoded models.QueryResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, 3, *decoded.Results[0].Page)
	assert.Nil(t, decoded.Results[1].Page)
	assert.Contains(t, buf.String(), `"page": null`)
	assert.Contains(t, buf.String(), "Квартальный")
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRunSummary(&buf, &models.RunSummary{
		FilesFound: 3, FilesByExt: map[string]int{".txt": 2, ".pdf": 1}, FilesProcessed: 2, FilesFailed: 1,
		Chunks: 10, OCRPages: 4, SkippedPages: 1, Output: "chunks.jsonl", Elapsed: 1500 * time.Millisecond,
	}, OutputText))
	out := buf.String()
	assert.Contains(t, out, "Files found: 3")
	assert.Less(t, strings.Index(out, ".pdf"), strings.Index(out, ".txt"))
	assert.Contains(t, out, "OCR pages: 4, skipped pages: 1")
	assert.Contains(t, out, "Chunks written: 10 -> chunks.jsonl")

	buf.Reset()
	require.NoError(t, WriteIndexSummary(&buf, &models.IndexSummary{Vectors: 10, Dimensions: 384, IndexType: "memory", Model: "m", Mirrored: true}, OutputText))
	assert.Contains(t, buf.String(), "Vectors: 10 x 384 (memory)")
	assert.Contains(t, buf.String(), "Chunk mirror updated")

	buf.Reset()
	require.NoError(t, WriteStatus(&buf, &models.Status{LoadError: "vector index not found"}, OutputText))
	assert.Contains(t, buf.String(), "Index: not built")
	assert.Contains(t, buf.String(), "Disk usage: 0 B")

	buf.Reset()
	require.NoError(t, WriteStatus(&buf, &models.Status{Loaded: true, TextSource: "mirror", MirrorChunks: 12, MirrorSources: 4}, OutputText))
	assert.Contains(t, buf.String(), "Chunk text: mirror")
	assert.Contains(t, buf.String(), "Mirror: 12 chunks from 4 sources")
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		assert.Equal(t, want, FormatBytes(n), "FormatBytes(%d)", n)
	}
}

func TestRunREPL(t *testing.T) {
	var asked []string
	query := func(_ context.Context, text string) (*models.QueryResponse, error) {
		asked = append(asked, text)
		if text == "fail" {
			return nil, errors.New("boom")
		}
		return sampleResponse(), nil
	}
	in := strings.NewReader("  first  \nfail\n\nnever\n")
	var out bytes.Buffer
	require.NoError(t, RunREPL(context.Background(), in, &out, query, OutputText))
	assert.Equal(t, []string{"first", "fail"}, asked)
	assert.Equal(t, 3, strings.Count(out.String(), Prompt))
	assert.Contains(t, out.String(), "error: boom")
	assert.Contains(t, out.String(), "=== TOP RESULTS ===")
}

func TestRunREPL_EOF(t *testing.T) {
	var out bytes.Buffer
	err := RunREPL(context.Background(), strings.NewReader("q"), &out, func(context.Context, string) (*models.QueryResponse, error) {
		return &models.QueryResponse{}, nil
	}, OutputText)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), Prompt))
}
