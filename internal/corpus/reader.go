package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/tansaku/internal/models"
)

// maxLineBytes bounds a single corpus line, not the corpus.
const maxLineBytes = 16 << 20

// Reader streams records from a corpus file.
type Reader struct {
	sc   *bufio.Scanner
	line int
	rec  models.ChunkRecord
	err  error
}

// NewReader reads records from r line by line. Blank lines are skipped.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next advances to the next record. It returns false at EOF or on error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.line++
		b := r.sc.Bytes()
		if len(b) == 0 {
			continue
		}
		r.rec = models.ChunkRecord{}
		if err := json.Unmarshal(b, &r.rec); err != nil {
			r.err = fmt.Errorf("corpus line %d: %w", r.line, err)
			return false
		}
		return true
	}
	if err := r.sc.Err(); err != nil {
		r.err = fmt.Errorf("corpus line %d: %w", r.line+1, err)
	}
	return false
}

// Record returns the current record.
func (r *Reader) Record() models.ChunkRecord { return r.rec }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Scan calls fn for every record of the corpus at path, stopping at the first error.
func Scan(path string, fn func(models.ChunkRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	r := NewReader(f)
	for r.Next() {
		if err := fn(r.Record()); err != nil {
			return err
		}
	}
	return r.Err()
}

// ReadAll loads every record of the corpus at path.
func ReadAll(path string) ([]models.ChunkRecord, error) {
	var recs []models.ChunkRecord
	err := Scan(path, func(rec models.ChunkRecord) error {
		recs = append(recs, rec)
		return nil
	})
	return recs, err
}

// LoadTexts returns chunk text by ID.
func LoadTexts(path string) (map[string]string, error) {
	texts := make(map[string]string)
	err := Scan(path, func(rec models.ChunkRecord) error {
		texts[rec.ID] = rec.Text
		return nil
	})
	if err != nil {
		return nil, err
	}
	return texts, nil
}
