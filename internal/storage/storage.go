// Package storage keeps an optional SQLite mirror of the corpus for lookups and status counts.
package storage

import (
	"context"

	"github.com/hyperjump/tansaku/internal/models"
)

// Storage is the chunk mirror. It is rebuilt wholesale on every index build.
type Storage interface {
	// ReplaceChunks swaps the mirrored corpus for recs in one transaction.
	ReplaceChunks(ctx context.Context, buildID string, recs []models.ChunkRecord) error
	// GetTexts returns the text of every requested chunk that exists.
	GetTexts(ctx context.Context, ids []string) (map[string]string, error)
	BuildID(ctx context.Context) (string, error)

	// Stats
	CountChunks(ctx context.Context) (int64, error)
	CountSources(ctx context.Context) (int64, error)

	Close() error
}
