package models

import "fmt"

// MetaEntry is the per-vector citation data stored next to the index.
type MetaEntry struct {
	ID         string     `json:"id"`
	SourceFile string     `json:"source_file"`
	Page       *int       `json:"page"`
	Type       SourceType `json:"type"`
}

// IndexMeta is the metadata document persisted with a vector index.
// IDs[i] and Meta[i] describe the vector at position i.
type IndexMeta struct {
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions,omitempty"`
	IndexType  string      `json:"index_type,omitempty"`
	BuildID    string      `json:"build_id,omitempty"`
	CreatedAt  string      `json:"created_at,omitempty"`
	IDs        []string    `json:"ids"`
	Meta       []MetaEntry `json:"meta"`
}

// Append adds the entry for the next vector position.
func (m *IndexMeta) Append(rec *ChunkRecord) {
	m.IDs = append(m.IDs, rec.ID)
	m.Meta = append(m.Meta, MetaEntry{
		ID:         rec.ID,
		SourceFile: rec.SourceFile,
		Page:       rec.Page,
		Type:       rec.Type,
	})
}

// Len returns the number of positions described.
func (m *IndexMeta) Len() int {
	return len(m.IDs)
}

// Validate checks that the ids and meta tables are parallel.
func (m *IndexMeta) Validate() error {
	if m.Model == "" {
		return fmt.Errorf("index metadata has no model name")
	}
	if len(m.IDs) != len(m.Meta) {
		return fmt.Errorf("index metadata has %d ids but %d meta entries", len(m.IDs), len(m.Meta))
	}
	for i := range m.IDs {
		if m.IDs[i] != m.Meta[i].ID {
			return fmt.Errorf("index metadata out of order at position %d: id %q, meta %q", i, m.IDs[i], m.Meta[i].ID)
		}
	}
	return nil
}
