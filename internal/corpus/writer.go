package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrDuplicateID is returned when a build writes the same chunk ID twice.
var ErrDuplicateID = errors.New("duplicate chunk id")

// Writer writes a corpus to a temporary file that replaces the target on Commit.
type Writer struct {
	path  string
	tmp   *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	seen  map[string]struct{}
	count int
	done  bool
}

// NewWriter creates the temporary file next to path, creating the directory if needed.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp corpus: %w", err)
	}
	buf := bufio.NewWriter(tmp)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{path: path, tmp: tmp, buf: buf, enc: enc, seen: make(map[string]struct{})}, nil
}

// Append writes rec as one JSON line. Empty text is dropped silently.
func (w *Writer) Append(rec models.ChunkRecord) error {
	if w.done {
		return errors.New("corpus writer is closed")
	}
	if rec.Text == "" {
		return nil
	}
	if _, dup := w.seen[rec.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	w.seen[rec.ID] = struct{}{}
	w.count++
	return nil
}

// Count returns the number of records appended so far.
func (w *Writer) Count() int { return w.count }

// Commit flushes, syncs and renames the temporary file over the target.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("corpus writer is closed")
	}
	w.done = true
	if err := w.buf.Flush(); err != nil {
		w.cleanup()
		return fmt.Errorf("flush corpus: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.cleanup()
		return fmt.Errorf("sync corpus: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(w.tmp.Name())
		return fmt.Errorf("close corpus: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		_ = os.Remove(w.tmp.Name())
		return fmt.Errorf("rename corpus: %w", err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.cleanup()
}

func (w *Writer) cleanup() {
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
