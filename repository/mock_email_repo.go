package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// MockEmailRepository serves canned messages so the whole pipeline can run
// locally without Azure credentials.
type MockEmailRepository struct {
	userID string
	emails []types.Email
}

func NewMockEmailRepository(userID string) *MockEmailRepository {
	if userID == "" {
		userID = "testuser@company.com"
	}
	log.Info().Str("user_id", userID).Msg("Using mock email repository")
	return &MockEmailRepository{userID: userID, emails: mockEmails()}
}

func (r *MockEmailRepository) GetMessage(_ context.Context, messageID string) (*types.Email, error) {
	log.Info().Str("message_id", messageID).Msg("Fetching mock email")
	for _, email := range r.emails {
		if email.ID == messageID {
			return &email, nil
		}
	}
	return nil, types.NewEmailNotFoundError(messageID)
}

func (r *MockEmailRepository) ListMessages(_ context.Context, opts types.ListMessagesOptions) ([]types.Email, error) {
	log.Info().Str("search", opts.Search).Int("top", opts.Top).Msg("Listing mock emails")

	var out []types.Email
	for _, email := range r.emails {
		if opts.SubjectContains != "" && !strings.Contains(strings.ToLower(email.Subject), strings.ToLower(opts.SubjectContains)) {
			continue
		}
		if opts.FromAddress != "" && (email.From == nil || email.From.EmailAddress.Address != opts.FromAddress) {
			continue
		}
		if opts.Search != "" {
			haystack := strings.ToLower(email.Subject + " " + email.Body.Content)
			if !strings.Contains(haystack, strings.ToLower(opts.Search)) {
				continue
			}
		}
		out = append(out, email)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SentDateTime.After(out[j].SentDateTime)
	})
	top := opts.Top
	if top <= 0 {
		top = 25
	}
	if len(out) > top {
		out = out[:top]
	}
	return out, nil
}

func (r *MockEmailRepository) ListAttachments(_ context.Context, messageID string) ([]types.Attachment, error) {
	log.Info().Str("message_id", messageID).Msg("Listing mock attachments")
	return nil, nil
}

func (r *MockEmailRepository) GetAttachment(_ context.Context, messageID, attachmentID string) (*types.Attachment, error) {
	return nil, types.NewEmailNotFoundError(messageID)
}

func mockEmails() []types.Email {
	now := time.Now()
	return []types.Email{
		{
			ID:      "msg001",
			Subject: "Q4 Budget Review Meeting",
			Body: types.EmailBody{
				ContentType: "text",
				Content: `Hi team,

I wanted to follow up on our Q4 budget review. Here are the key points we need to discuss:

1. Marketing spend is 15% over budget due to the new campaign
2. Engineering delivered the new features ahead of schedule, saving $50k
3. Sales exceeded targets by 22%, resulting in higher commission payouts
4. We need to reallocate funds for Q1 planning

Please review the attached spreadsheet before our meeting tomorrow at 2 PM.

Best regards,
Sarah`,
			},
			From:         &types.Recipient{EmailAddress: types.EmailAddress{Address: "sarah@company.com", Name: "Sarah Johnson"}},
			ToRecipients: []types.Recipient{{EmailAddress: types.EmailAddress{Address: "team@company.com"}}},
			SentDateTime: now.Add(-2 * time.Hour),
		},
		{
			ID:      "msg002",
			Subject: "Security Update Required - Action Needed",
			Body: types.EmailBody{
				ContentType: "text",
				Content: `Dear IT Team,

URGENT: We've identified a critical security vulnerability in our authentication system.

Required Actions:
- All users must update their passwords by EOD Friday
- Enable 2FA for all admin accounts immediately
- Review access logs for any suspicious activity in the past 48 hours
- Update all API keys and rotate secrets

I've scheduled an emergency meeting for 3 PM today. Attendance is mandatory.

This is a high-priority issue that needs immediate attention.

Thanks,
Mike
Security Team Lead`,
			},
			From:         &types.Recipient{EmailAddress: types.EmailAddress{Address: "mike@company.com", Name: "Mike Chen"}},
			ToRecipients: []types.Recipient{{EmailAddress: types.EmailAddress{Address: "it-team@company.com"}}},
			SentDateTime: now.Add(-1 * time.Hour),
		},
		{
			ID:      "msg003",
			Subject: "Welcome to the Team!",
			Body: types.EmailBody{
				ContentType: "text",
				Content: `Hi Alex,

Welcome to the engineering team! We're excited to have you join us.

Here's what you need to know for your first week:
- Monday: Orientation at 9 AM in the main conference room
- Tuesday: Meet with your mentor (John) at 10 AM
- Wednesday: Team standup at 9:30 AM (daily)
- Thursday: Tech stack overview with the architecture team
- Friday: First sprint planning session

Your equipment should be ready for pickup from IT. Your temporary password is in a separate email.

Looking forward to working with you!

Best,
Lisa
Engineering Manager`,
			},
			From:         &types.Recipient{EmailAddress: types.EmailAddress{Address: "lisa@company.com", Name: "Lisa Wang"}},
			ToRecipients: []types.Recipient{{EmailAddress: types.EmailAddress{Address: "alex@company.com"}}},
			SentDateTime: now.Add(-24 * time.Hour),
		},
	}
}
