package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/types"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// EmailRepository abstracts access to a user's mailbox. The production
// implementation talks to Microsoft Graph; the mock serves canned data for
// local development.
type EmailRepository interface {
	GetMessage(ctx context.Context, messageID string) (*types.Email, error)
	ListMessages(ctx context.Context, opts types.ListMessagesOptions) ([]types.Email, error)
	ListAttachments(ctx context.Context, messageID string) ([]types.Attachment, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) (*types.Attachment, error)
}

// NewEmailRepository picks the Graph or mock implementation per config.
func NewEmailRepository(cfg *config.Config, userID string) EmailRepository {
	if cfg.UseMockGraphAPI {
		return NewMockEmailRepository(userID)
	}
	return NewGraphEmailRepository(cfg, userID)
}

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// graphTokenSource acquires client-credentials tokens for the Graph API and
// caches them until shortly before expiry.
type graphTokenSource struct {
	tenantID     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newGraphTokenSource(cfg *config.Config) *graphTokenSource {
	return &graphTokenSource{
		tenantID:     cfg.AzureTenantID,
		clientID:     cfg.AzureClientID,
		clientSecret: cfg.AzureClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (ts *graphTokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	// 60s of slack so a token never expires mid-request
	if ts.token != "" && time.Now().Add(time.Minute).Before(ts.expires) {
		return ts.token, nil
	}

	log.Info().Msg("Acquiring Microsoft Graph API token")
	form := url.Values{
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}
	endpoint := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", ts.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", types.NewGraphAPIError("Could not acquire token. Please check your Azure AD app credentials and permissions.", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", types.NewGraphAPIError(
			fmt.Sprintf("Could not acquire token. Status: %d, Response: %s", resp.StatusCode, string(body)), nil)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", types.NewGraphAPIError("Could not parse token response.", err)
	}
	if tokenResp.AccessToken == "" {
		return "", types.NewGraphAPIError("Could not acquire token. Please check your Azure AD app credentials and permissions.", nil)
	}

	ts.token = tokenResp.AccessToken
	ts.expires = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return ts.token, nil
}

// GraphEmailRepository fetches messages from Microsoft Graph for a single
// mailbox, requesting plain-text bodies via the Prefer header.
type GraphEmailRepository struct {
	baseURL    string
	tokens     tokenSource
	httpClient *http.Client
}

func NewGraphEmailRepository(cfg *config.Config, userID string) *GraphEmailRepository {
	return &GraphEmailRepository{
		baseURL:    fmt.Sprintf("%s/users/%s", graphBaseURL, userID),
		tokens:     newGraphTokenSource(cfg),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

const messageSelect = "id,subject,body,from,toRecipients,ccRecipients,sentDateTime,isRead,hasAttachments"

func (r *GraphEmailRepository) GetMessage(ctx context.Context, messageID string) (*types.Email, error) {
	log.Info().Str("message_id", messageID).Msg("Fetching email from Graph API")

	params := url.Values{"$select": {messageSelect}}
	body, status, err := r.get(ctx, "/messages/"+url.PathEscape(messageID), params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, types.NewEmailNotFoundError(messageID)
	}
	if status != http.StatusOK {
		return nil, types.NewGraphAPIError(
			fmt.Sprintf("Failed to fetch email. Status: %d, Response: %s", status, string(body)), nil)
	}

	var email types.Email
	if err := json.Unmarshal(body, &email); err != nil {
		return nil, types.NewGraphAPIError("Failed to parse email response.", err)
	}
	return &email, nil
}

func (r *GraphEmailRepository) ListMessages(ctx context.Context, opts types.ListMessagesOptions) ([]types.Email, error) {
	var filters []string
	if opts.StartDateTime != nil {
		filters = append(filters, fmt.Sprintf("sentDateTime ge %s", opts.StartDateTime.UTC().Format("2006-01-02T15:04:05Z")))
	}
	if opts.EndDateTime != nil {
		filters = append(filters, fmt.Sprintf("sentDateTime le %s", opts.EndDateTime.UTC().Format("2006-01-02T15:04:05Z")))
	}
	if opts.FromAddress != "" {
		filters = append(filters, fmt.Sprintf("from/emailAddress/address eq '%s'", opts.FromAddress))
	}
	if opts.SubjectContains != "" {
		filters = append(filters, fmt.Sprintf("contains(subject, '%s')", opts.SubjectContains))
	}
	if opts.IsUnread != nil {
		filters = append(filters, fmt.Sprintf("isRead eq %t", !*opts.IsUnread))
	}

	top := opts.Top
	if top <= 0 {
		top = 25
	}
	params := url.Values{
		"$select": {messageSelect},
		"$top":    {strconv.Itoa(top)},
	}
	if opts.Search != "" {
		// $search is incompatible with $orderby on Graph
		params.Set("$search", fmt.Sprintf("%q", opts.Search))
	} else {
		params.Set("$orderby", "sentDateTime desc")
	}
	if len(filters) > 0 {
		params.Set("$filter", strings.Join(filters, " and "))
	}

	log.Info().Str("filter", params.Get("$filter")).Msg("Fetching email list from Graph API")

	body, status, err := r.get(ctx, "/messages", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, types.NewGraphAPIError(
			fmt.Sprintf("Failed to fetch email list. Status: %d, Response: %s", status, string(body)), nil)
	}

	var page struct {
		Value []types.Email `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, types.NewGraphAPIError("Failed to parse email list response.", err)
	}
	return page.Value, nil
}

func (r *GraphEmailRepository) ListAttachments(ctx context.Context, messageID string) ([]types.Attachment, error) {
	params := url.Values{"$select": {"id,name,contentType,size,isInline"}}
	body, status, err := r.get(ctx, "/messages/"+url.PathEscape(messageID)+"/attachments", params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, types.NewEmailNotFoundError(messageID)
	}
	if status != http.StatusOK {
		return nil, types.NewGraphAPIError(
			fmt.Sprintf("Failed to fetch attachments. Status: %d, Response: %s", status, string(body)), nil)
	}

	var page struct {
		Value []types.Attachment `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, types.NewGraphAPIError("Failed to parse attachment list response.", err)
	}
	return page.Value, nil
}

func (r *GraphEmailRepository) GetAttachment(ctx context.Context, messageID, attachmentID string) (*types.Attachment, error) {
	path := "/messages/" + url.PathEscape(messageID) + "/attachments/" + url.PathEscape(attachmentID)
	body, status, err := r.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, types.NewEmailNotFoundError(messageID)
	}
	if status != http.StatusOK {
		return nil, types.NewGraphAPIError(
			fmt.Sprintf("Failed to fetch attachment. Status: %d, Response: %s", status, string(body)), nil)
	}

	var attachment types.Attachment
	if err := json.Unmarshal(body, &attachment); err != nil {
		return nil, types.NewGraphAPIError("Failed to parse attachment response.", err)
	}
	return &attachment, nil
}

// get performs an authenticated GET and returns the raw body and status.
// Transport failures surface as Graph errors; HTTP status handling is left to
// the caller since 404 means different things per endpoint.
func (r *GraphEmailRepository) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	endpoint := r.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", `outlook.body-content-type="text"`)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, types.NewGraphAPIError("Failed to reach Graph API.", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, types.NewGraphAPIError("Failed to read Graph API response.", err)
	}
	return body, resp.StatusCode, nil
}
