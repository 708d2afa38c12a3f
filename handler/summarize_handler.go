package handler

import (
	"net/http"

	"github.com/tieubaoca/email-summarizer-be/service"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// SummarizeHandler serves single-email summarization.
type SummarizeHandler struct {
	emails      *service.EmailService
	summaries   *service.SummaryService
	llmProvider string
}

func NewSummarizeHandler(emails *service.EmailService, summaries *service.SummaryService, llmProvider string) *SummarizeHandler {
	return &SummarizeHandler{emails: emails, summaries: summaries, llmProvider: llmProvider}
}

// HandleSummarize summarizes one message by id. The structured option asks
// the provider for a schema-constrained summary; include_attachments folds
// readable attachments into the summarized content.
func (h *SummarizeHandler) HandleSummarize() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		msgID := r.URL.Query().Get("msg_id")
		if msgID == "" {
			sendErrorMessage(w, "msg_id query parameter is required", http.StatusBadRequest)
			return
		}
		structured := r.URL.Query().Get("structured") == "true"
		includeAttachments := r.URL.Query().Get("include_attachments") == "true"

		content, err := h.emails.FetchEmailContent(r.Context(), msgID, includeAttachments)
		if err != nil {
			sendError(w, err)
			return
		}

		resp := types.SummarizeResponse{
			MessageID:   msgID,
			LLMProvider: h.llmProvider,
		}
		if structured {
			summary, structuredSummary, cached, err := h.summaries.SummarizeStructured(r.Context(), content)
			if err != nil {
				sendError(w, err)
				return
			}
			resp.Summary = summary
			resp.StructuredSummary = structuredSummary
			resp.Cached = cached
		} else {
			summary, cached, err := h.summaries.Summarize(r.Context(), content)
			if err != nil {
				sendError(w, err)
				return
			}
			resp.Summary = summary
			resp.Cached = cached
		}
		sendJSON(w, http.StatusOK, resp)
	})
}
