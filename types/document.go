package types

import "time"

// Document is an opaque piece of text plus provenance metadata. Produced by
// the retrieval layer, consumed read-only by the summarization and RAG
// pipelines.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EmailDocument is a row of the vector store: an ingested email with its
// similarity distance when returned from a query.
type EmailDocument struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Content      string    `json:"content"`
	SentDateTime time.Time `json:"sent_date_time"`
	UserID       string    `json:"-"`
	Distance     float64   `json:"distance,omitempty"`
}

// EmailSummary is the schema-constrained summarization output.
type EmailSummary struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Sentiment   string   `json:"sentiment"`
}
