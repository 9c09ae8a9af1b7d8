// Package extract turns source files into raw text sections, one adapter per format.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/models"
)

// ErrUnsupportedExtension is returned when no extractor is registered for a file's extension.
var ErrUnsupportedExtension = errors.New("unsupported extension")

// Section is the raw text of one scope of a document. Page is 1-based for
// paginated formats and 0 for the single scope of flat formats.
type Section struct {
	Page       int
	Text       string
	Extraction models.Extraction
}

// Document is the extraction result for one file.
type Document struct {
	Path         string
	Type         models.SourceType
	Sections     []Section
	OCRPages     int
	SkippedPages int
}

// Text joins all sections with blank lines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Extractor reads one file and returns its sections.
type Extractor interface {
	Type() models.SourceType
	Extract(ctx context.Context, path string) (*Document, error)
}

// Registry dispatches files to extractors by lowercase extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// Register binds ext (with leading dot) to e, replacing any previous binding.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Lookup returns the extractor for ext.
func (r *Registry) Lookup(ext string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(ext)]
	return e, ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches path to the extractor registered for its extension.
func (r *Registry) Extract(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return e.Extract(ctx, path)
}

// Option configures the default registry.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	recognizer Recognizer
}

// WithLogger sets the logger used for per-page decisions and OCR failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecognizer replaces the pdftoppm + tesseract recognizer used for thin PDF pages.
func WithRecognizer(rec Recognizer) Option {
	return func(o *options) { o.recognizer = rec }
}

// NewDefaultRegistry registers every built-in format. Which of them are actually
// ingested is decided by the allow-list during discovery.
func NewDefaultRegistry(cfg *config.IngestConfig, opts ...Option) *Registry {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.recognizer == nil {
		o.recognizer = NewTesseractRecognizer(cfg.OCRDPI, cfg.OCRLang)
	}
	policy := FallbackPolicy{MinTextChars: cfg.MinTextCharsOrDefault(), OCREnabled: cfg.OCREnabledOrDefault()}

	r := NewRegistry()
	r.Register(".pdf", NewPDFExtractor(policy, o.recognizer, o.logger))
	html := &HTMLExtractor{}
	r.Register(".html", html)
	r.Register(".htm", html)
	r.Register(".txt", &PlainExtractor{SourceType: models.TypeTXT})
	r.Register(".md", &PlainExtractor{SourceType: models.TypeMD})
	r.Register(".docx", &DOCXExtractor{})
	r.Register(".xlsx", &XLSXExtractor{})
	r.Register(".pptx", &PPTXExtractor{})
	r.Register(".odt", &CatExtractor{SourceType: models.TypeODT})
	r.Register(".rtf", &CatExtractor{SourceType: models.TypeRTF})
	return r
}

// flatDocument wraps the text of a flat format in its single scope.
func flatDocument(path string, t models.SourceType, text string) *Document {
	doc := &Document{Path: path, Type: t}
	if strings.TrimSpace(text) != "" {
		doc.Sections = []Section{{Page: 0, Text: text}}
	}
	return doc
}
