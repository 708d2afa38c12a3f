package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/email-summarizer-be/types"
)

type staticTokenSource struct{}

func (staticTokenSource) Token(context.Context) (string, error) { return "test-token", nil }

func newTestRepo(srv *httptest.Server) *GraphEmailRepository {
	return &GraphEmailRepository{
		baseURL:    srv.URL,
		tokens:     staticTokenSource{},
		httpClient: srv.Client(),
	}
}

func TestGetMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, `outlook.body-content-type="text"`, r.Header.Get("Prefer"))
		assert.Equal(t, "/messages/msg001", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg001",
			"subject": "Q4 Budget",
			"body": {"content": "the body", "contentType": "text"},
			"from": {"emailAddress": {"name": "Sarah", "address": "sarah@company.com"}},
			"sentDateTime": "2026-01-05T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	email, err := newTestRepo(srv).GetMessage(context.Background(), "msg001")
	require.NoError(t, err)
	assert.Equal(t, "msg001", email.ID)
	assert.Equal(t, "Q4 Budget", email.Subject)
	assert.Equal(t, "the body", email.Body.Content)
	require.NotNil(t, email.From)
	assert.Equal(t, "sarah@company.com", email.From.EmailAddress.Address)
	assert.Equal(t, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), email.SentDateTime)
}

func TestGetMessageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestRepo(srv).GetMessage(context.Background(), "missing-id")
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "missing-id")
}

func TestGetMessageUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("graph exploded"))
	}))
	defer srv.Close()

	_, err := newTestRepo(srv).GetMessage(context.Background(), "msg001")
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "500")
	assert.Contains(t, svcErr.Message, "graph exploded")
}

func TestListMessagesBuildsODataFilter(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	unread := true

	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"value": [{"id": "msg001", "subject": "hello"}]}`))
	}))
	defer srv.Close()

	emails, err := newTestRepo(srv).ListMessages(context.Background(), types.ListMessagesOptions{
		StartDateTime:   &start,
		FromAddress:     "sarah@company.com",
		SubjectContains: "budget",
		IsUnread:        &unread,
		Top:             10,
	})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "msg001", emails[0].ID)

	require.Len(t, gotQuery["$filter"], 1)
	filter := gotQuery["$filter"][0]
	assert.Contains(t, filter, "sentDateTime ge 2026-01-01T00:00:00Z")
	assert.Contains(t, filter, "from/emailAddress/address eq 'sarah@company.com'")
	assert.Contains(t, filter, "contains(subject, 'budget')")
	assert.Contains(t, filter, "isRead eq false")
	assert.Equal(t, []string{"10"}, gotQuery["$top"])
	assert.Equal(t, []string{"sentDateTime desc"}, gotQuery["$orderby"])
}

func TestListMessagesSearchSkipsOrderBy(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"value": []}`))
	}))
	defer srv.Close()

	_, err := newTestRepo(srv).ListMessages(context.Background(), types.ListMessagesOptions{Search: "budget"})
	require.NoError(t, err)
	assert.Equal(t, []string{`"budget"`}, gotQuery["$search"])
	assert.Empty(t, gotQuery["$orderby"])
}

func TestMockRepository(t *testing.T) {
	repo := NewMockEmailRepository("")

	t.Run("get known message", func(t *testing.T) {
		email, err := repo.GetMessage(context.Background(), "msg001")
		require.NoError(t, err)
		assert.Equal(t, "Q4 Budget Review Meeting", email.Subject)
	})

	t.Run("get unknown message", func(t *testing.T) {
		_, err := repo.GetMessage(context.Background(), "nope")
		var svcErr *types.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})

	t.Run("search filters content", func(t *testing.T) {
		emails, err := repo.ListMessages(context.Background(), types.ListMessagesOptions{Search: "security"})
		require.NoError(t, err)
		require.Len(t, emails, 1)
		assert.Equal(t, "msg002", emails[0].ID)
	})
}
