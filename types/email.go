package types

import "time"

// Email represents a single email message from Microsoft Graph.
type Email struct {
	ID            string      `json:"id"`
	Subject       string      `json:"subject"`
	Body          EmailBody   `json:"body"`
	From          *Recipient  `json:"from,omitempty"`
	ToRecipients  []Recipient `json:"toRecipients,omitempty"`
	CcRecipients  []Recipient `json:"ccRecipients,omitempty"`
	SentDateTime  time.Time   `json:"sentDateTime"`
	IsRead        *bool       `json:"isRead,omitempty"`
	HasAttachment bool        `json:"hasAttachments,omitempty"`
}

type EmailBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Attachment represents a file attachment from Microsoft Graph.
type Attachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int    `json:"size"`
	IsInline     bool   `json:"isInline"`
	ContentBytes string `json:"contentBytes,omitempty"`
}

// FullContent combines the subject and body for a complete summary context.
func (e *Email) FullContent() string {
	return "Subject: " + e.Subject + "\n\n" + e.Body.Content
}

// ListMessagesOptions are the recognized filters for listing messages,
// translated into OData query parameters by the Graph repository.
type ListMessagesOptions struct {
	StartDateTime   *time.Time
	EndDateTime     *time.Time
	FromAddress     string
	SubjectContains string
	IsUnread        *bool
	Search          string
	Top             int
}
