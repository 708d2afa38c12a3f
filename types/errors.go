package types

import (
	"fmt"
	"net/http"
)

// ServiceError is the base error for the service layer. Handlers map it to a
// JSON body {"detail": message} with the carried status code.
type ServiceError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// NewEmailNotFoundError reports a message absent upstream (404).
func NewEmailNotFoundError(messageID string) *ServiceError {
	return &ServiceError{
		Message:    fmt.Sprintf("Email with message_id '%s' not found.", messageID),
		StatusCode: http.StatusNotFound,
	}
}

// NewGraphAPIError reports an upstream Graph failure (502). The upstream
// status and body are echoed in the message to aid debugging.
func NewGraphAPIError(message string, err error) *ServiceError {
	return &ServiceError{Message: message, StatusCode: http.StatusBadGateway, Err: err}
}

// NewSummarizationError wraps a generation failure during summarization (500).
// The provider's own error text is kept in Err, not in the external message.
func NewSummarizationError(err error) *ServiceError {
	return &ServiceError{
		Message:    "An error occurred during summarization.",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewRAGError wraps a generation failure during RAG chain execution (500).
func NewRAGError(err error) *ServiceError {
	return &ServiceError{
		Message:    "An error occurred while answering the question.",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
