package models

// QueryResult is one ranked hit resolved to its citation.
type QueryResult struct {
	Rank       int        `json:"rank"`
	Score      float64    `json:"score"`
	ID         string     `json:"id"`
	SourceFile string     `json:"source_file"`
	Page       *int       `json:"page"`
	Type       SourceType `json:"type"`
	Citation   string     `json:"citation"`
	Preview    string     `json:"preview"`
	// TextAvailable is false when the chunk text could not be resolved (metadata-only mode).
	TextAvailable bool `json:"text_available"`
}

// QueryResponse is the response for a query request.
type QueryResponse struct {
	Query     string         `json:"query"`
	Mode      string         `json:"mode"`
	Model     string         `json:"model,omitempty"`
	Results   []*QueryResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	// Degraded is set when chunk text was unavailable and only citations are returned.
	Degraded bool `json:"degraded,omitempty"`
}
