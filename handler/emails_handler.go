package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tieubaoca/email-summarizer-be/service"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// EmailsHandler serves mailbox search.
type EmailsHandler struct {
	emails *service.EmailService
}

func NewEmailsHandler(emails *service.EmailService) *EmailsHandler {
	return &EmailsHandler{emails: emails}
}

func (h *EmailsHandler) HandleList() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		opts := types.ListMessagesOptions{
			FromAddress:     q.Get("from_address"),
			SubjectContains: q.Get("subject_contains"),
			Search:          q.Get("search"),
		}

		if v := q.Get("is_unread"); v != "" {
			unread, err := strconv.ParseBool(v)
			if err != nil {
				sendErrorMessage(w, "is_unread must be a boolean", http.StatusBadRequest)
				return
			}
			opts.IsUnread = &unread
		}
		if v := q.Get("start_date"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				sendErrorMessage(w, "start_date must be an ISO 8601 timestamp", http.StatusBadRequest)
				return
			}
			opts.StartDateTime = &t
		}
		if v := q.Get("end_date"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				sendErrorMessage(w, "end_date must be an ISO 8601 timestamp", http.StatusBadRequest)
				return
			}
			opts.EndDateTime = &t
		}
		opts.Top = 25
		if v := q.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 1 || limit > 100 {
				sendErrorMessage(w, "limit must be an integer between 1 and 100", http.StatusBadRequest)
				return
			}
			opts.Top = limit
		}

		emails, err := h.emails.ListEmails(r.Context(), opts)
		if err != nil {
			sendError(w, err)
			return
		}
		if emails == nil {
			emails = []types.Email{}
		}
		sendJSON(w, http.StatusOK, emails)
	})
}
