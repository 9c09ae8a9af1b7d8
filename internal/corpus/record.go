// Package corpus builds chunk records and stores them as a JSONL file.
package corpus

import (
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/textnorm"
)

// NewRecord builds the record for the ordinal-th chunk (1-based) of a scope.
// page is 0 for flat formats. ok is false when the chunk normalizes to nothing.
func NewRecord(page int, text string, ordinal int, sourceFile string, t models.SourceType, extraction models.Extraction) (rec models.ChunkRecord, ok bool) {
	text = textnorm.Normalize(text)
	if text == "" {
		return models.ChunkRecord{}, false
	}
	if !t.Paginated() {
		page = 0
		extraction = ""
	}
	return models.ChunkRecord{
		ID:          fileid.ChunkID(sourceFile, page, ordinal),
		Text:        text,
		SourceFile:  sourceFile,
		Page:        models.PageRef(page),
		ChunkInPage: ordinal,
		Type:        t,
		Extraction:  extraction,
	}, true
}
