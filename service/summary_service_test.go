package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/email-summarizer-be/database"
	"github.com/tieubaoca/email-summarizer-be/types"
)

func newTestSummaryService(t *testing.T, llm ChatModel) *SummaryService {
	t.Helper()
	svc, err := NewSummaryService(testConfig(), llm, database.NewMemoryStore())
	require.NoError(t, err)
	return svc
}

func TestSummarizeMissThenHit(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) { return "the summary", nil },
	}
	svc := newTestSummaryService(t, llm)
	content := "Subject: Standup\n\nShort meeting notes."

	first, cached, err := svc.Summarize(context.Background(), content)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "the summary", first)
	assert.Equal(t, 1, llm.callCount())

	second, cached, err := svc.Summarize(context.Background(), content)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second, "cached summary must be byte-identical")
	assert.Equal(t, 1, llm.callCount(), "cache hit must not call the provider")
}

func TestSummarizeLongContentMapReduce(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "final consolidated summary") {
				return "consolidated", nil
			}
			return "partial", nil
		},
	}
	cfg := testConfig()
	cfg.RAGTokenMax = 2000 // 40-token chunks for the unknown mock model
	svc, err := NewSummaryService(cfg, llm, database.NewMemoryStore())
	require.NoError(t, err)

	content := strings.Repeat("A long email about the quarterly budget planning process. ", 50)
	summary, cached, err := svc.Summarize(context.Background(), content)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "consolidated", summary)
	assert.Greater(t, llm.callCount(), 2, "expected multiple map calls plus one reduce")
}

func TestSummarizeWrapsProviderError(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			return "", assert.AnError
		},
	}
	svc := newTestSummaryService(t, llm)

	_, _, err := svc.Summarize(context.Background(), "content")
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
	assert.Equal(t, "An error occurred during summarization.", svcErr.Message)
}

// structuredMockModel adds schema-constrained output to the base mock.
type structuredMockModel struct {
	mockChatModel
	structured func(content string) (*types.EmailSummary, error)
}

func (m *structuredMockModel) GenerateEmailSummary(_ context.Context, content string) (*types.EmailSummary, error) {
	return m.structured(content)
}

func TestSummarizeStructured(t *testing.T) {
	t.Run("provider with structured support", func(t *testing.T) {
		llm := &structuredMockModel{
			structured: func(content string) (*types.EmailSummary, error) {
				return &types.EmailSummary{
					Summary:   "structured summary",
					KeyPoints: []string{"point one"},
					Sentiment: "neutral",
				}, nil
			},
		}
		svc := newTestSummaryService(t, llm)

		summary, structured, _, err := svc.SummarizeStructured(context.Background(), "content")
		require.NoError(t, err)
		require.NotNil(t, structured)
		assert.Equal(t, "structured summary", summary)
		assert.Equal(t, []string{"point one"}, structured.KeyPoints)
	})

	t.Run("structured failure falls back to plain chain", func(t *testing.T) {
		llm := &structuredMockModel{
			mockChatModel: mockChatModel{
				generate: func(prompt string) (string, error) { return "plain summary", nil },
			},
			structured: func(content string) (*types.EmailSummary, error) {
				return nil, assert.AnError
			},
		}
		svc := newTestSummaryService(t, llm)

		summary, structured, _, err := svc.SummarizeStructured(context.Background(), "content")
		require.NoError(t, err)
		assert.Nil(t, structured)
		assert.Equal(t, "plain summary", summary)
	})

	t.Run("provider without structured support", func(t *testing.T) {
		llm := &mockChatModel{
			generate: func(prompt string) (string, error) { return "plain summary", nil },
		}
		svc := newTestSummaryService(t, llm)

		summary, structured, _, err := svc.SummarizeStructured(context.Background(), "content")
		require.NoError(t, err)
		assert.Nil(t, structured)
		assert.Equal(t, "plain summary", summary)
	})
}

func TestDigestEmails(t *testing.T) {
	t.Run("empty input returns fixed response without calls", func(t *testing.T) {
		llm := &mockChatModel{}
		svc := newTestSummaryService(t, llm)

		digest, err := svc.DigestEmails(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, NoEmailsToSummarize, digest)
		assert.Zero(t, llm.callCount())
	})

	t.Run("small batch digested in one call", func(t *testing.T) {
		llm := &mockChatModel{
			generate: func(prompt string) (string, error) { return "the digest", nil },
		}
		svc := newTestSummaryService(t, llm)

		digest, err := svc.DigestEmails(context.Background(), []string{"email one", "email two"})
		require.NoError(t, err)
		assert.Equal(t, "the digest", digest)
		assert.Equal(t, 1, llm.callCount())
	})
}
