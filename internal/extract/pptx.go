package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// pptxSlidePathPrefix is the path prefix for slide XML files inside a .pptx zip.
const pptxSlidePathPrefix = "ppt/slides/slide"

const drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

// PPTXExtractor treats each slide as a page, in slide number order.
type PPTXExtractor struct{}

func (e *PPTXExtractor) Type() models.SourceType { return models.TypePPTX }

type slideFile struct {
	num  int
	file *zip.File
}

func (e *PPTXExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	defer zr.Close()

	var slides []slideFile
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePathPrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	doc := &Document{Path: path, Type: models.TypePPTX}
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := readSlide(s.file)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %s: %w", s.file.Name, err)
		}
		if strings.TrimSpace(text) == "" {
			doc.SkippedPages++
			continue
		}
		doc.Sections = append(doc.Sections, Section{Page: s.num, Text: text, Extraction: models.ExtractionText})
	}
	return doc, nil
}

// readSlide returns the slide's text runs, one line per DrawingML paragraph.
func readSlide(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var lines []string
	var line strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == drawingNS && t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Space != drawingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
