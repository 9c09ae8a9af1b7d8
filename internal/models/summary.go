package models

import "time"

// RunSummary describes one corpus build.
type RunSummary struct {
	FilesFound        int            `json:"files_found"`
	FilesByExt        map[string]int `json:"files_by_extension"`
	FilesProcessed    int            `json:"files_processed"`
	FilesFailed       int            `json:"files_failed"`
	DocumentsTooShort int            `json:"documents_too_short"`
	Chunks            int            `json:"chunks"`
	OCRPages          int            `json:"ocr_pages"`
	SkippedPages      int            `json:"skipped_pages"`
	Output            string         `json:"output"`
	Elapsed           time.Duration  `json:"elapsed_ns"`
}

// IndexSummary describes one vector index build.
type IndexSummary struct {
	Vectors    int           `json:"vectors"`
	Dimensions int           `json:"dimensions"`
	Model      string        `json:"model"`
	IndexType  string        `json:"index_type"`
	BuildID    string        `json:"build_id"`
	IndexPath  string        `json:"index_path"`
	MetaPath   string        `json:"meta_path"`
	Mirrored   bool          `json:"mirrored"`
	Keyword    bool          `json:"keyword_indexed"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Status describes the artifacts a query engine serves from.
type Status struct {
	Loaded     bool   `json:"loaded"`
	Model      string `json:"model,omitempty"`
	IndexType  string `json:"index_type,omitempty"`
	BuildID    string `json:"build_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	Vectors    int    `json:"vectors"`
	Dimensions int    `json:"dimensions"`
	Sources    int    `json:"sources"`
	// TextSource is "mirror", "corpus" or "none" (metadata-only).
	TextSource string `json:"text_source,omitempty"`
	// Mirror counts are set when TextSource is "mirror".
	MirrorChunks  int64 `json:"mirror_chunks,omitempty"`
	MirrorSources int64 `json:"mirror_sources,omitempty"`
	Keyword       bool  `json:"keyword_index"`
	DiskBytes  int64  `json:"disk_bytes"`
	LoadError  string `json:"load_error,omitempty"`
}
