// Package models defines the records shared by ingestion, indexing and querying.
package models

import "fmt"

// SourceType tags the format a chunk was extracted from.
type SourceType string

const (
	TypePDF  SourceType = "pdf"
	TypeHTML SourceType = "html"
	TypeTXT  SourceType = "txt"
	TypeDOCX SourceType = "docx"
	TypeMD   SourceType = "md"
	TypeXLSX SourceType = "xlsx"
	TypePPTX SourceType = "pptx"
	TypeODT  SourceType = "odt"
	TypeRTF  SourceType = "rtf"
)

// Paginated reports whether records of this type carry a page number.
func (t SourceType) Paginated() bool {
	return t == TypePDF || t == TypePPTX
}

// Extraction records which path produced the text of a paginated record.
type Extraction string

const (
	ExtractionText Extraction = "text"
	ExtractionOCR  Extraction = "ocr"
)

// ChunkRecord is one line of the corpus file.
type ChunkRecord struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	SourceFile  string     `json:"source_file"`
	Page        *int       `json:"page"`
	ChunkInPage int        `json:"chunk_in_page"`
	Type        SourceType `json:"type"`
	Extraction  Extraction `json:"extraction,omitempty"`
}

// Citation returns the human-readable provenance of the record.
func (r *ChunkRecord) Citation() string {
	return Citation(r.SourceFile, r.Page)
}

// Citation formats "file, page N", or just the file name when page is nil.
func Citation(sourceFile string, page *int) string {
	if page == nil {
		return sourceFile
	}
	return fmt.Sprintf("%s, page %d", sourceFile, *page)
}

// PageRef returns a pointer to page, or nil for scope 0 (flat formats).
func PageRef(page int) *int {
	if page <= 0 {
		return nil
	}
	return &page
}
