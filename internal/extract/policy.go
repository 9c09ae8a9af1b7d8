package extract

import (
	"context"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/textnorm"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// FallbackPolicy decides, per page, between the text layer and recognition.
type FallbackPolicy struct {
	MinTextChars int
	OCREnabled   bool
}

// PageResult is the outcome of resolving one page.
type PageResult struct {
	Text         string
	Extraction   models.Extraction
	OK           bool
	OCRAttempted bool
	// Err is the recognition error when OCR failed; the page is then skipped.
	Err error
}

// Resolve returns normalized text for page. Direct text wins when it has at least
// MinTextChars characters; otherwise recognition is tried once. A page that is still
// thin, or whose recognition failed, is reported with OK false.
func (p FallbackPolicy) Resolve(ctx context.Context, src PageSource, page int) PageResult {
	direct, err := src.ExtractDirect(ctx, page)
	if err == nil {
		direct = textnorm.Normalize(direct)
		if utils.RuneLen(direct) >= p.MinTextChars && direct != "" {
			return PageResult{Text: direct, Extraction: models.ExtractionText, OK: true}
		}
	}
	if !p.OCREnabled {
		return PageResult{}
	}

	res := PageResult{OCRAttempted: true}
	recognized, err := src.ExtractWithRecognition(ctx, page)
	if err != nil {
		res.Err = err
		return res
	}
	recognized = textnorm.Normalize(recognized)
	if recognized == "" || utils.RuneLen(recognized) < p.MinTextChars {
		return res
	}
	res.Text = recognized
	res.Extraction = models.ExtractionOCR
	res.OK = true
	return res
}
