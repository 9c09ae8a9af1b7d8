// Package fileid derives deterministic chunk identifiers from provenance.
package fileid

import "fmt"

// Separator joins the parts of a chunk ID.
const Separator = "::"

// ChunkID returns "{file}::p{page}::c{ordinal}" when page > 0 and "{file}::c{ordinal}" otherwise.
// The same provenance always yields the same ID.
func ChunkID(sourceFile string, page, ordinal int) string {
	if page > 0 {
		return fmt.Sprintf("%s%sp%d%sc%d", sourceFile, Separator, page, Separator, ordinal)
	}
	return fmt.Sprintf("%s%sc%d", sourceFile, Separator, ordinal)
}
