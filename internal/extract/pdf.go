package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// PageSource exposes the two extraction stages of a paginated document.
type PageSource interface {
	NumPages() int
	ExtractDirect(ctx context.Context, page int) (string, error)
	ExtractWithRecognition(ctx context.Context, page int) (string, error)
	Close() error
}

type pdfPageSource struct {
	path       string
	file       *os.File
	reader     *pdf.Reader
	recognizer Recognizer
}

// OpenPDF opens path for page-wise extraction. Recognition is delegated to rec.
func OpenPDF(path string, rec Recognizer) (PageSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	return &pdfPageSource{path: path, file: f, reader: r, recognizer: rec}, nil
}

func (s *pdfPageSource) NumPages() int {
	return s.reader.NumPage()
}

// ExtractDirect returns the text layer of page. A page with a null dictionary yields "".
func (s *pdfPageSource) ExtractDirect(_ context.Context, page int) (text string, err error) {
	defer func() {
		// The parser panics on some malformed content streams.
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract page %d: %v", page, r)
		}
	}()
	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", page, err)
	}
	return text, nil
}

func (s *pdfPageSource) ExtractWithRecognition(ctx context.Context, page int) (string, error) {
	if s.recognizer == nil {
		return "", fmt.Errorf("recognize page %d: %w", page, ErrOCRToolNotFound)
	}
	return s.recognizer.Recognize(ctx, s.path, page)
}

func (s *pdfPageSource) Close() error {
	return s.file.Close()
}

// PDFExtractor extracts PDFs page by page under a FallbackPolicy.
type PDFExtractor struct {
	policy FallbackPolicy
	open   func(path string) (PageSource, error)
	logger *zap.Logger
}

// NewPDFExtractor returns a PDF extractor that sends thin pages to rec.
func NewPDFExtractor(policy FallbackPolicy, rec Recognizer, logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{
		policy: policy,
		open:   func(path string) (PageSource, error) { return OpenPDF(path, rec) },
		logger: utils.OrNop(logger),
	}
}

func (e *PDFExtractor) Type() models.SourceType { return models.TypePDF }

func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	src, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return e.extractPages(ctx, path, src)
}

func (e *PDFExtractor) extractPages(ctx context.Context, path string, src PageSource) (*Document, error) {
	doc := &Document{Path: path, Type: models.TypePDF}
	for page := 1; page <= src.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := e.policy.Resolve(ctx, src, page)
		if res.OCRAttempted {
			doc.OCRPages++
		}
		if !res.OK {
			doc.SkippedPages++
			if res.Err != nil {
				e.logger.Warn("OCR failed, page skipped",
					zap.String("path", path), zap.Int("page", page), zap.Error(res.Err))
			} else {
				e.logger.Debug("page skipped", zap.String("path", path), zap.Int("page", page),
					zap.Bool("ocr", res.OCRAttempted))
			}
			continue
		}
		e.logger.Debug("page extracted", zap.String("path", path), zap.Int("page", page),
			zap.String("extraction", string(res.Extraction)))
		doc.Sections = append(doc.Sections, Section{Page: page, Text: res.Text, Extraction: res.Extraction})
	}
	return doc, nil
}
