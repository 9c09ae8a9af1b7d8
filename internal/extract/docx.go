package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// DOCXExtractor emits paragraphs in document order followed by one line per table row.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Type() models.SourceType { return models.TypeDOCX }

func (e *DOCXExtractor) Extract(_ context.Context, path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	defer zr.Close()

	docPath := findDocxMainDocumentPath(&zr.Reader)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
		}
		defer rc.Close()
		text, err := docxText(rc)
		if err != nil {
			return nil, fmt.Errorf("extract DOCX: %w", err)
		}
		return flatDocument(path, models.TypeDOCX, text), nil
	}
	return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return ""
		}
		content := buf.String()
		if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
		if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
		return ""
	}
	return ""
}

// docxText streams a WordprocessingML body. Text inside tables, nested ones included,
// belongs to the cell of the outermost table.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		rows       []string
		para       strings.Builder
		cell       strings.Builder
		cells      []string
		tblDepth   int
		inText     bool
	)
	write := func(s string) {
		if tblDepth > 0 {
			cell.WriteString(s)
		} else {
			para.WriteString(s)
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				write(" ")
			case "br", "cr":
				write("\n")
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					cells = cells[:0]
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tblDepth > 0 {
					cell.WriteByte(' ')
					continue
				}
				if line := strings.TrimSpace(para.String()); line != "" {
					paragraphs = append(paragraphs, line)
				}
				para.Reset()
			case "tc":
				if tblDepth == 1 {
					cells = append(cells, cell.String())
				}
			case "tr":
				if tblDepth == 1 {
					if row := tableRow(cells); row != "" {
						rows = append(rows, row)
					}
				}
			case "tbl":
				tblDepth--
			}
		case xml.CharData:
			if inText {
				write(string(t))
			}
		}
	}
	return strings.Join(append(paragraphs, rows...), "\n"), nil
}
