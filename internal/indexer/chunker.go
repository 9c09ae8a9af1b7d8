package indexer

import (
	"regexp"
	"strings"

	"github.com/hyperjump/tansaku/internal/textnorm"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// Default chunking parameters, in characters.
const (
	DefaultMaxChars = 1000
	DefaultOverlap  = 200
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunker packs paragraphs of normalized text into bounded, overlapping chunks.
type Chunker struct {
	maxChars int
	overlap  int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMaxChars sets the soft upper bound of a chunk. Non-positive values are ignored.
func WithMaxChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets how many trailing characters of a chunk are repeated at the start of the next.
// Zero disables overlap; negative values are ignored.
func WithOverlap(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// NewChunker creates a chunker with max 1000 characters and 200 characters of overlap unless overridden.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{maxChars: DefaultMaxChars, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxChars returns the configured chunk bound.
func (c *Chunker) MaxChars() int { return c.maxChars }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into chunks in order. Paragraphs are never split: one longer than
// the bound becomes a chunk of its own.
func (c *Chunker) Chunk(text string) []string {
	packed := c.Pack(text)
	if c.overlap <= 0 || len(packed) < 2 {
		return packed
	}
	out := make([]string, len(packed))
	out[0] = packed[0]
	for i := 1; i < len(packed); i++ {
		out[i] = utils.TailRunes(packed[i-1], c.overlap) + "\n" + packed[i]
	}
	return out
}

// Pack returns the chunks before overlap is injected.
func (c *Chunker) Pack(text string) []string {
	text = textnorm.Normalize(text)
	if text == "" {
		return nil
	}
	var chunks []string
	var buf string
	bufLen := 0
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pLen := utils.RuneLen(p)
		if bufLen+pLen+2 <= c.maxChars {
			if buf == "" {
				buf = p
				bufLen = pLen
			} else {
				buf = buf + "\n\n" + p
				bufLen += pLen + 2
			}
			continue
		}
		if buf != "" {
			chunks = append(chunks, buf)
		}
		buf = p
		bufLen = pLen
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}
