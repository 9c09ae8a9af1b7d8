package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/tansaku/internal/models"
)

// XLSXExtractor renders each sheet row as one pipe-delimited line, sheets separated by a blank line.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Type() models.SourceType { return models.TypeXLSX }

func (e *XLSXExtractor) Extract(_ context.Context, path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var lines []string
		for _, row := range rows {
			if line := tableRow(row); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}
	return flatDocument(path, models.TypeXLSX, strings.Join(sheets, "\n\n")), nil
}

// tableRow joins the non-empty trimmed cells of a row with " | ".
func tableRow(cells []string) string {
	kept := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.Join(strings.Fields(c), " "); c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " | ")
}
