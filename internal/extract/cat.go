package extract

import (
	"context"
	"fmt"

	"github.com/lu4p/cat"

	"github.com/hyperjump/tansaku/internal/models"
)

// CatExtractor handles ODT and RTF files through lu4p/cat.
type CatExtractor struct {
	SourceType models.SourceType
}

func (e *CatExtractor) Type() models.SourceType { return e.SourceType }

func (e *CatExtractor) Extract(_ context.Context, path string) (*Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", e.SourceType, err)
	}
	return flatDocument(path, e.SourceType, text), nil
}
