package types

// ErrorResponse is the uniform error body for every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type SummarizeResponse struct {
	Summary           string        `json:"summary,omitempty"`
	StructuredSummary *EmailSummary `json:"structured_summary,omitempty"`
	MessageID         string        `json:"message_id"`
	Cached            bool          `json:"cached"`
	LLMProvider       string        `json:"llm_provider"`
}

type SummarizeDigestResponse struct {
	Digest      string `json:"digest"`
	LLMProvider string `json:"llm_provider"`
}

type AskResponse struct {
	Answer          string          `json:"answer"`
	SourceDocuments []EmailDocument `json:"source_documents"`
	Partial         bool            `json:"partial"`
	LLMProvider     string          `json:"llm_provider"`
}

type IngestResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}
