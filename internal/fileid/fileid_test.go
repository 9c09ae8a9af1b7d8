package fileid

import (
	"testing"
)

func TestChunkID(t *testing.T) {
	if got := ChunkID("guide.pdf", 3, 2); got != "guide.pdf::p3::c2" {
		t.Errorf("paginated id: got %s", got)
	}
	if got := ChunkID("notes.txt", 0, 1); got != "notes.txt::c1" {
		t.Errorf("flat id: got %s", got)
	}
	if ChunkID("a.pdf", 1, 1) != ChunkID("a.pdf", 1, 1) {
		t.Error("same provenance must yield same id")
	}
	if ChunkID("a.pdf", 1, 2) == ChunkID("a.pdf", 2, 1) {
		t.Error("page and ordinal must both be part of the id")
	}
}
