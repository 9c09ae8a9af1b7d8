package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/tansaku/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainExtractor reads UTF-8 text files. Undecodable bytes are dropped.
type PlainExtractor struct {
	SourceType models.SourceType
}

func (e *PlainExtractor) Type() models.SourceType { return e.SourceType }

func (e *PlainExtractor) Extract(_ context.Context, path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return flatDocument(path, e.SourceType, decodePlain(content)), nil
}

func decodePlain(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	return string(bytes.ToValidUTF8(content, nil))
}
