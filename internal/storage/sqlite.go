package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		source_file TEXT NOT NULL,
		page INTEGER,
		chunk_in_page INTEGER NOT NULL,
		type TEXT NOT NULL,
		extraction TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_file ON chunks(source_file);
	CREATE INDEX IF NOT EXISTS idx_chunks_position ON chunks(position);

	CREATE TABLE IF NOT EXISTS build_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceChunks deletes the previous mirror and inserts recs, in a single transaction.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, buildID string, recs []models.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, position, text, source_file, page, chunk_in_page, type, extraction)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range recs {
		var page sql.NullInt64
		if rec.Page != nil {
			page = sql.NullInt64{Int64: int64(*rec.Page), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, i, rec.Text, rec.SourceFile, page,
			rec.ChunkInPage, string(rec.Type), string(rec.Extraction)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", rec.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO build_info (key, value) VALUES ('build_id', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, buildID); err != nil {
		return fmt.Errorf("record build id: %w", err)
	}
	return tx.Commit()
}

// GetTexts looks up chunk texts by ID. Missing IDs are absent from the result.
func (s *SQLiteStorage) GetTexts(ctx context.Context, ids []string) (map[string]string, error) {
	texts := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return texts, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		texts[id] = text
	}
	return texts, rows.Err()
}

// BuildID returns the build ID of the mirrored corpus, or "" when nothing was mirrored.
func (s *SQLiteStorage) BuildID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM build_info WHERE key = 'build_id'`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// CountSources returns the number of distinct source files.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source_file) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
