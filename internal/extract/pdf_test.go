package extract

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
)

// fakePages is a PageSource with scripted direct and recognized text per page.
type fakePages struct {
	direct     map[int]string
	recognized map[int]string
	ocrErr     map[int]error
	ocrCalls   []int
	closed     bool
}

func (f *fakePages) NumPages() int {
	n := 0
	for p := range f.direct {
		if p > n {
			n = p
		}
	}
	return n
}

func (f *fakePages) ExtractDirect(_ context.Context, page int) (string, error) {
	return f.direct[page], nil
}

func (f *fakePages) ExtractWithRecognition(_ context.Context, page int) (string, error) {
	f.ocrCalls = append(f.ocrCalls, page)
	if err := f.ocrErr[page]; err != nil {
		return "", err
	}
	return f.recognized[page], nil
}

func (f *fakePages) Close() error {
	f.closed = true
	return nil
}

var richText = strings.Repeat("Достаточно длинный текст страницы. ", 3)

func TestFallbackPolicy_Resolve(t *testing.T) {
	src := &fakePages{
		direct:     map[int]string{1: richText, 2: "short", 3: "", 4: "tiny"},
		recognized: map[int]string{2: richText, 3: "still thin"},
		ocrErr:     map[int]error{4: errors.New("tesseract crashed")},
	}
	policy := FallbackPolicy{MinTextChars: 40, OCREnabled: true}
	ctx := context.Background()

	res := policy.Resolve(ctx, src, 1)
	if !res.OK || res.Extraction != models.ExtractionText || res.OCRAttempted {
		t.Errorf("page 1: %+v", res)
	}
	if res.Text != strings.TrimSpace(richText) {
		t.Errorf("page 1 text not normalized: %q", res.Text)
	}

	res = policy.Resolve(ctx, src, 2)
	if !res.OK || res.Extraction != models.ExtractionOCR || !res.OCRAttempted {
		t.Errorf("page 2: %+v", res)
	}

	res = policy.Resolve(ctx, src, 3)
	if res.OK || !res.OCRAttempted || res.Err != nil {
		t.Errorf("page 3: %+v", res)
	}

	res = policy.Resolve(ctx, src, 4)
	if res.OK || !res.OCRAttempted || res.Err == nil {
		t.Errorf("page 4: %+v", res)
	}

	if want := []int{2, 3, 4}; !reflect.DeepEqual(src.ocrCalls, want) {
		t.Errorf("OCR calls = %v, want %v", src.ocrCalls, want)
	}
}

func TestFallbackPolicy_ocrDisabled(t *testing.T) {
	src := &fakePages{direct: map[int]string{1: "thin"}, recognized: map[int]string{1: richText}}
	res := FallbackPolicy{MinTextChars: 40}.Resolve(context.Background(), src, 1)
	if res.OK || res.OCRAttempted {
		t.Errorf("got %+v", res)
	}
	if len(src.ocrCalls) != 0 {
		t.Errorf("recognition must not run when disabled")
	}
}

func TestFallbackPolicy_boilerplateOnlyPageIsThin(t *testing.T) {
	src := &fakePages{direct: map[int]string{1: "Страница 3 из 10\nhttps://example.org/some/very/long/path/to/nowhere"}}
	res := FallbackPolicy{MinTextChars: 40}.Resolve(context.Background(), src, 1)
	if res.OK {
		t.Errorf("footer-only page should be thin, got %+v", res)
	}
}

func TestPDFExtractor_countsOCRAndSkips(t *testing.T) {
	src := &fakePages{
		direct:     map[int]string{1: richText, 2: "", 3: "x", 4: "y"},
		recognized: map[int]string{2: richText},
		ocrErr:     map[int]error{4: errors.New("boom")},
	}
	e := &PDFExtractor{policy: FallbackPolicy{MinTextChars: 40, OCREnabled: true}, logger: nopLogger()}
	e.open = func(string) (PageSource, error) { return src, nil }

	doc, err := e.Extract(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !src.closed {
		t.Error("page source not closed")
	}
	if doc.OCRPages != 3 {
		t.Errorf("OCRPages = %d, want 3", doc.OCRPages)
	}
	if doc.SkippedPages != 2 {
		t.Errorf("SkippedPages = %d, want 2", doc.SkippedPages)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("sections = %+v", doc.Sections)
	}
	if doc.Sections[0].Page != 1 || doc.Sections[0].Extraction != models.ExtractionText {
		t.Errorf("section 0 = %+v", doc.Sections[0])
	}
	if doc.Sections[1].Page != 2 || doc.Sections[1].Extraction != models.ExtractionOCR {
		t.Errorf("section 1 = %+v", doc.Sections[1])
	}
}

func TestPDFExtractor_cancelled(t *testing.T) {
	src := &fakePages{direct: map[int]string{1: richText}}
	e := &PDFExtractor{policy: FallbackPolicy{MinTextChars: 40}, logger: nopLogger()}
	e.open = func(string) (PageSource, error) { return src, nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Extract(ctx, "a.pdf"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPDFExtractor_openError(t *testing.T) {
	e := NewPDFExtractor(FallbackPolicy{MinTextChars: 40}, nil, nil)
	if _, err := e.Extract(context.Background(), writeFile(t, "broken.pdf", []byte("not a pdf"))); err == nil {
		t.Error("expected error for invalid PDF")
	}
}
