package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrOCRToolNotFound is returned when pdftoppm or tesseract is not on PATH.
var ErrOCRToolNotFound = errors.New("OCR tool not found")

// Default recognition settings.
const (
	DefaultOCRDPI  = 250
	DefaultOCRLang = "rus"
)

// Recognizer turns one page of a PDF into text.
type Recognizer interface {
	Recognize(ctx context.Context, pdfPath string, page int) (string, error)
}

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOCRToolNotFound, name)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// TesseractRecognizer rasterizes a page with pdftoppm and reads it with tesseract.
type TesseractRecognizer struct {
	runner CommandRunner
	dpi    int
	lang   string
}

// RecognizerOption configures a TesseractRecognizer.
type RecognizerOption func(*TesseractRecognizer)

// WithCommandRunner replaces the os/exec runner.
func WithCommandRunner(r CommandRunner) RecognizerOption {
	return func(t *TesseractRecognizer) { t.runner = r }
}

// NewTesseractRecognizer returns a recognizer rendering at dpi and reading in lang.
func NewTesseractRecognizer(dpi int, lang string, opts ...RecognizerOption) *TesseractRecognizer {
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}
	if lang == "" {
		lang = DefaultOCRLang
	}
	t := &TesseractRecognizer{runner: execRunner{}, dpi: dpi, lang: lang}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, pdfPath string, page int) (string, error) {
	dir, err := os.MkdirTemp("", "tansaku-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create OCR workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	if _, err := t.runner.Run(ctx, "pdftoppm",
		"-r", strconv.Itoa(t.dpi), "-f", n, "-l", n, "-singlefile", "-png", pdfPath, prefix); err != nil {
		return "", fmt.Errorf("rasterize page %d: %w", page, err)
	}
	out, err := t.runner.Run(ctx, "tesseract", prefix+".png", "stdout", "-l", t.lang)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", page, err)
	}
	return string(out), nil
}

// CheckOCRAvailable reports whether both OCR executables can be found.
func CheckOCRAvailable() error {
	for _, tool := range []string{"pdftoppm", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s (install poppler-utils and tesseract-ocr with the language data for OCR_LANG)",
				ErrOCRToolNotFound, tool)
		}
	}
	return nil
}
