package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tieubaoca/email-summarizer-be/service"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// SummariesHandler serves digest summaries over multiple emails.
type SummariesHandler struct {
	emails      *service.EmailService
	summaries   *service.SummaryService
	llmProvider string
}

func NewSummariesHandler(emails *service.EmailService, summaries *service.SummaryService, llmProvider string) *SummariesHandler {
	return &SummariesHandler{emails: emails, summaries: summaries, llmProvider: llmProvider}
}

// HandleBulk creates one digest from an explicit list of message ids.
func (h *SummariesHandler) HandleBulk() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req types.SummarizeBulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendErrorMessage(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var contents []string
		for _, msgID := range req.MessageIDs {
			email, err := h.emails.GetEmail(r.Context(), msgID)
			if err != nil {
				sendError(w, err)
				return
			}
			contents = append(contents, email.FullContent())
		}

		digest, err := h.summaries.DigestEmails(r.Context(), contents)
		if err != nil {
			sendError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, types.SummarizeDigestResponse{
			Digest:      digest,
			LLMProvider: h.llmProvider,
		})
	})
}

// HandleDaily digests everything received in the last 24 hours.
func (h *SummariesHandler) HandleDaily() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		now := time.Now()
		yesterday := now.Add(-24 * time.Hour)
		emails, err := h.emails.ListEmails(r.Context(), types.ListMessagesOptions{
			StartDateTime: &yesterday,
			EndDateTime:   &now,
		})
		if err != nil {
			sendError(w, err)
			return
		}

		contents := make([]string, 0, len(emails))
		for _, email := range emails {
			contents = append(contents, email.FullContent())
		}

		digest, err := h.summaries.DigestEmails(r.Context(), contents)
		if err != nil {
			sendError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, types.SummarizeDigestResponse{
			Digest:      digest,
			LLMProvider: h.llmProvider,
		})
	})
}
