package service

import (
	"context"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// EmailService assembles the full text of a message, optionally inlining
// readable attachment content.
type EmailService struct {
	repo repository.EmailRepository
}

func NewEmailService(repo repository.EmailRepository) *EmailService {
	return &EmailService{repo: repo}
}

// FetchEmailContent returns subject plus body, with each readable attachment
// appended under its own delimiter section.
func (s *EmailService) FetchEmailContent(ctx context.Context, messageID string, includeAttachments bool) (string, error) {
	email, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	content := email.FullContent()
	if !includeAttachments {
		return content, nil
	}

	log.Info().Str("message_id", messageID).Msg("Fetching attachments for email")
	attachments, err := s.repo.ListAttachments(ctx, messageID)
	if err != nil {
		return "", err
	}
	for _, meta := range attachments {
		if meta.IsInline {
			continue
		}
		full, err := s.repo.GetAttachment(ctx, messageID, meta.ID)
		if err != nil {
			log.Error().Err(err).Str("attachment_id", meta.ID).Msg("Failed to fetch attachment")
			continue
		}
		text := attachmentText(full)
		if text != "" {
			content += "\n\n--- Attachment: " + meta.Name + " ---\n" + text
		}
	}
	return content, nil
}

// ListEmails passes the filter options through to the mailbox.
func (s *EmailService) ListEmails(ctx context.Context, opts types.ListMessagesOptions) ([]types.Email, error) {
	return s.repo.ListMessages(ctx, opts)
}

// GetEmail returns a single message.
func (s *EmailService) GetEmail(ctx context.Context, messageID string) (*types.Email, error) {
	return s.repo.GetMessage(ctx, messageID)
}

// attachmentText decodes text-bearing attachments. Binary formats are skipped;
// there is no OCR or document parsing here.
func attachmentText(attachment *types.Attachment) string {
	if attachment.ContentBytes == "" {
		return ""
	}
	contentType := strings.ToLower(attachment.ContentType)
	if !strings.HasPrefix(contentType, "text/") &&
		!strings.Contains(contentType, "json") &&
		!strings.Contains(contentType, "xml") &&
		!strings.Contains(contentType, "csv") {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(attachment.ContentBytes)
	if err != nil {
		log.Warn().Err(err).Str("attachment", attachment.Name).Msg("Failed to decode attachment content")
		return ""
	}
	if !utf8.Valid(decoded) {
		return ""
	}
	return string(decoded)
}
