// Package cli renders tansaku results for the terminal and runs the interactive query loop.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/tansaku/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// Prompt is printed before each interactive query.
const Prompt = "QUERY> "

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteQueryResults writes query results to w in the given format.
func WriteQueryResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintln(w, "\n=== TOP RESULTS ===")
	if len(response.Results) == 0 {
		fmt.Fprintln(w, "\n(no results)")
	}
	for _, r := range response.Results {
		fmt.Fprintf(w, "\n#%d  score=%.4f\n", r.Rank, r.Score)
		fmt.Fprintf(w, "CITE: %s\n", r.Citation)
		if r.TextAvailable {
			fmt.Fprintln(w, r.Preview)
		} else {
			fmt.Fprintf(w, "(text unavailable, id %s)\n", r.ID)
		}
	}
	return nil
}

// WriteRunSummary reports a corpus build.
func WriteRunSummary(w io.Writer, s *models.RunSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Files found: %d\n", s.FilesFound)
	exts := make([]string, 0, len(s.FilesByExt))
	for ext := range s.FilesByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  %-6s %d\n", ext, s.FilesByExt[ext])
	}
	fmt.Fprintf(w, "Files processed: %d (failed: %d, too short: %d)\n", s.FilesProcessed, s.FilesFailed, s.DocumentsTooShort)
	fmt.Fprintf(w, "OCR pages: %d, skipped pages: %d\n", s.OCRPages, s.SkippedPages)
	fmt.Fprintf(w, "Chunks written: %d -> %s\n", s.Chunks, s.Output)
	fmt.Fprintf(w, "Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	return nil
}

// WriteIndexSummary reports a vector index build.
func WriteIndexSummary(w io.Writer, s *models.IndexSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Vectors: %d x %d (%s)\n", s.Vectors, s.Dimensions, s.IndexType)
	fmt.Fprintf(w, "Model: %s\n", s.Model)
	fmt.Fprintf(w, "Build: %s\n", s.BuildID)
	fmt.Fprintf(w, "Index: %s\nMeta: %s\n", s.IndexPath, s.MetaPath)
	if s.Mirrored {
		fmt.Fprintln(w, "Chunk mirror updated")
	}
	if s.Keyword {
		fmt.Fprintln(w, "Keyword index updated")
	}
	fmt.Fprintf(w, "Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	return nil
}

// WriteStatus reports the state of the built artifacts.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	if !st.Loaded {
		fmt.Fprintln(w, "Index: not built")
		if st.LoadError != "" {
			fmt.Fprintf(w, "  %s\n", st.LoadError)
		}
	} else {
		fmt.Fprintf(w, "Index: %d vectors x %d (%s)\n", st.Vectors, st.Dimensions, st.IndexType)
		fmt.Fprintf(w, "Sources: %d\n", st.Sources)
		fmt.Fprintf(w, "Model: %s\n", st.Model)
		if st.BuildID != "" {
			fmt.Fprintf(w, "Build: %s (%s)\n", st.BuildID, st.CreatedAt)
		}
		if st.LoadError != "" {
			fmt.Fprintf(w, "Warning: %s\n", st.LoadError)
		}
	}
	if st.TextSource != "" {
		fmt.Fprintf(w, "Chunk text: %s\n", st.TextSource)
	}
	if st.MirrorChunks > 0 {
		fmt.Fprintf(w, "Mirror: %d chunks from %d sources\n", st.MirrorChunks, st.MirrorSources)
	}
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(st.DiskBytes))
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// QueryFunc answers one query.
type QueryFunc func(ctx context.Context, text string) (*models.QueryResponse, error)

// RunREPL reads queries from in until an empty line or EOF and writes results to out.
// A failed query is reported and the loop continues.
func RunREPL(ctx context.Context, in io.Reader, out io.Writer, query QueryFunc, format OutputFormat) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}
		resp, err := query(ctx, text)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := WriteQueryResults(out, resp, format); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
}
