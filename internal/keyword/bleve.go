package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/tansaku/internal/models"
)

const batchSize = 500

// BleveIndex implements KeywordIndex using Bleve.
// Rebuild swaps the underlying index under a write lock so concurrent searches never
// see a closed index.
type BleveIndex struct {
	mu    sync.RWMutex
	path  string
	index bleve.Index
}

func newIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: unicode tokenization plus lowercase, no stemming.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("source", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("type", keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{path: path, index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{path: path, index: index}, nil
}

// OpenBleveIndex opens an existing Bleve index. A missing index is an error wrapping os.ErrNotExist.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("keyword index %s: %w", path, err)
	}
	return NewBleveIndex(path)
}

// Rebuild drops the index directory and indexes recs from scratch in batches.
func (b *BleveIndex) Rebuild(ctx context.Context, recs []models.ChunkRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("close Bleve index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("remove Bleve index: %w", err)
	}
	index, err := bleve.New(b.path, newIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index

	batch := index.NewBatch()
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := &recs[i]
		doc := map[string]interface{}{
			"text":   rec.Text,
			"source": rec.SourceFile,
			"type":   string(rec.Type),
		}
		if err := batch.Index(rec.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", rec.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("Bleve batch failed: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search runs a match query and returns up to limit results.
// With no boosts a single match over text and source is used. With SourceBoost or PhraseBoost
// above 1 the text and source queries run separately and are merged additively with a
// term coverage penalty and a phrase bonus.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	sourceBoost := 1.0
	phraseBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		if opts.SourceBoost > 0 {
			sourceBoost = opts.SourceBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	if limit <= 0 {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if sourceBoost <= 1.0 && phraseBoost <= 1.0 {
		return b.searchSingle(ctx, query, limit, fuzzyEnabled, fuzziness)
	}
	return b.searchWithBoosts(ctx, query, limit, sourceBoost, phraseBoost, fuzzyEnabled, fuzziness)
}

func (b *BleveIndex) searchSingle(ctx context.Context, query string, limit int, fuzzyEnabled bool, fuzziness int) ([]*KeywordResult, error) {
	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "")
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchWithBoosts(ctx context.Context, query string, limit int, sourceBoost, phraseBoost float64, fuzzyEnabled bool, fuzziness int) ([]*KeywordResult, error) {
	reqSize := max(limit*2, 50)

	terms := tokenizeQuery(query)
	numTerms := len(terms)

	var sourceQuery, textQuery blevequery.Query
	if fuzzyEnabled {
		sourceQuery = buildFuzzyQuery(query, fuzziness, "source")
		textQuery = buildFuzzyQuery(query, fuzziness, "text")
	} else {
		sq := bleve.NewMatchQuery(query)
		sq.SetField("source")
		sourceQuery = sq
		tq := bleve.NewMatchQuery(query)
		tq.SetField("text")
		textQuery = tq
	}

	sourceScores, err := b.scores(ctx, sourceQuery, reqSize)
	if err != nil {
		return nil, fmt.Errorf("Bleve source search failed: %w", err)
	}
	textScores, err := b.scores(ctx, textQuery, reqSize)
	if err != nil {
		return nil, fmt.Errorf("Bleve text search failed: %w", err)
	}

	coverage := map[string]int{}
	if numTerms > 1 {
		coverage = b.termCoverage(ctx, terms, reqSize, fuzzyEnabled, fuzziness)
	}
	phraseMatches := map[string]bool{}
	if phraseBoost > 1.0 && numTerms > 1 {
		phraseMatches = b.phraseMatches(ctx, query, reqSize)
	}

	ids := make(map[string]struct{}, len(sourceScores)+len(textScores))
	for id := range sourceScores {
		ids[id] = struct{}{}
	}
	for id := range textScores {
		ids[id] = struct{}{}
	}

	merged := make([]*KeywordResult, 0, len(ids))
	for id := range ids {
		score := sourceScores[id]*sourceBoost + textScores[id]
		// (matched/total)^2 so chunks matching every term outrank partial matches.
		if numTerms > 1 {
			matched := max(coverage[id], 1)
			c := float64(matched) / float64(numTerms)
			score *= c * c
		}
		if phraseMatches[id] {
			score *= phraseBoost
		}
		merged = append(merged, &KeywordResult{ID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (b *BleveIndex) scores(ctx context.Context, q blevequery.Query, size int) (map[string]float64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per term.
// An empty field searches all fields.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// termCoverage counts how many distinct query terms each chunk matches.
func (b *BleveIndex) termCoverage(ctx context.Context, terms []string, reqSize int, fuzzyEnabled bool, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzzyEnabled {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		hits, err := b.scores(ctx, q, reqSize)
		if err != nil {
			continue
		}
		for id := range hits {
			coverage[id]++
		}
	}
	return coverage
}

func (b *BleveIndex) phraseMatches(ctx context.Context, query string, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	pq := bleve.NewMatchPhraseQuery(query)
	pq.SetField("text")
	hits, err := b.scores(ctx, pq, reqSize)
	if err != nil {
		return matches
	}
	for id := range hits {
		matches[id] = true
	}
	return matches
}

// DocCount returns the total number of chunks in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
