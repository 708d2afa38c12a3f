package types

// AskRequest asks a question over the ingested email corpus.
type AskRequest struct {
	Question     string `json:"question"`
	TopK         int    `json:"top_k,omitempty"`
	AllowPartial bool   `json:"allow_partial,omitempty"`
}

// IngestRequest triggers background ingestion of emails matching a query.
type IngestRequest struct {
	Query string `json:"query"`
}

// SummarizeBulkRequest requests one digest over a list of message ids.
type SummarizeBulkRequest struct {
	MessageIDs []string `json:"message_ids"`
}
