package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/email-summarizer-be/database"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// mockChatModel scripts responses by prompt and records every call.
type mockChatModel struct {
	mu       sync.Mutex
	calls    []string
	generate func(prompt string) (string, error)
	delay    func(prompt string) time.Duration
}

func (m *mockChatModel) ModelName() string { return "mock-model" }

func (m *mockChatModel) Generate(_ context.Context, prompt string) (string, error) {
	if m.delay != nil {
		time.Sleep(m.delay(prompt))
	}
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()
	if m.generate != nil {
		return m.generate(prompt)
	}
	return "mock response", nil
}

func (m *mockChatModel) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	out, err := m.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	for _, word := range strings.SplitAfter(out, " ") {
		handler(word)
	}
	return nil
}

func (m *mockChatModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestRAGService(t *testing.T, llm ChatModel) *RAGService {
	t.Helper()
	svc, err := NewRAGService(testConfig(), llm, database.NewMemoryStore())
	require.NoError(t, err)
	return svc
}

func TestAnswerNoDocumentsReturnsSentinel(t *testing.T) {
	llm := &mockChatModel{}
	svc := newTestRAGService(t, llm)

	answer, partial, err := svc.Answer(context.Background(), "what happened?", nil, false)
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformation, answer)
	assert.False(t, partial)
	assert.Zero(t, llm.callCount(), "no documents means no LLM calls")
}

func TestAnswerAllChunksEmptyReturnsSentinel(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Return any relevant text verbatim") {
				return "   \n", nil
			}
			return "should never reduce", nil
		},
	}
	svc := newTestRAGService(t, llm)

	docs := []types.Document{
		{Content: "Lunch menu for Tuesday."},
		{Content: "Parking garage closure notice."},
	}
	answer, _, err := svc.Answer(context.Background(), "what is the budget?", docs, false)
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformation, answer)
	assert.Equal(t, 2, llm.callCount(), "map calls only, no reduce")
}

func TestAnswerPreservesChunkOrder(t *testing.T) {
	// The slowest chunk finishes last but must still appear first in the
	// reduce input.
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "alpha document"):
				return "EXCERPT-ALPHA", nil
			case strings.Contains(prompt, "beta document"):
				return "EXCERPT-BETA", nil
			case strings.Contains(prompt, "gamma document"):
				return "EXCERPT-GAMMA", nil
			}
			return "final answer", nil
		},
		delay: func(prompt string) time.Duration {
			if strings.Contains(prompt, "alpha document") {
				return 50 * time.Millisecond
			}
			return 0
		},
	}
	svc := newTestRAGService(t, llm)

	docs := []types.Document{
		{Content: "alpha document"},
		{Content: "beta document"},
		{Content: "gamma document"},
	}
	answer, _, err := svc.Answer(context.Background(), "what happened?", docs, false)
	require.NoError(t, err)
	assert.Equal(t, "final answer", answer)

	var reducePrompt string
	for _, call := range llm.calls {
		if strings.Contains(call, "EXCERPT-ALPHA") {
			reducePrompt = call
		}
	}
	require.NotEmpty(t, reducePrompt, "reduce prompt with excerpts not found")
	alpha := strings.Index(reducePrompt, "EXCERPT-ALPHA")
	beta := strings.Index(reducePrompt, "EXCERPT-BETA")
	gamma := strings.Index(reducePrompt, "EXCERPT-GAMMA")
	assert.True(t, alpha < beta && beta < gamma, "excerpts out of chunk order: %d %d %d", alpha, beta, gamma)
}

func TestAnswerMapResultsCached(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Return any relevant text verbatim") {
				return "relevant excerpt", nil
			}
			return "final answer", nil
		},
	}
	svc := newTestRAGService(t, llm)
	docs := []types.Document{{Content: "the budget meeting is at 2 PM"}}

	_, _, err := svc.Answer(context.Background(), "When is the meeting?", docs, false)
	require.NoError(t, err)
	firstRun := llm.callCount()
	assert.Equal(t, 2, firstRun) // 1 map + 1 reduce

	// Same chunk, same question modulo case and spacing: map stage must hit
	// the cache, only the terminal reduce runs again.
	_, _, err = svc.Answer(context.Background(), "  when is THE meeting? ", docs, false)
	require.NoError(t, err)
	assert.Equal(t, firstRun+1, llm.callCount())
}

func TestAnswerMapFailure(t *testing.T) {
	boom := errors.New("provider unavailable")
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "broken document") {
				return "", boom
			}
			if strings.Contains(prompt, "Return any relevant text verbatim") {
				return "good excerpt", nil
			}
			return "final answer", nil
		},
	}
	docs := []types.Document{
		{Content: "healthy document"},
		{Content: "broken document"},
	}

	t.Run("strict mode fails the request", func(t *testing.T) {
		svc := newTestRAGService(t, llm)
		_, _, err := svc.Answer(context.Background(), "what happened?", docs, false)
		require.Error(t, err)

		var svcErr *types.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, 500, svcErr.StatusCode)
		assert.Equal(t, "An error occurred while answering the question.", svcErr.Message)
	})

	t.Run("allow partial proceeds and flags the response", func(t *testing.T) {
		svc := newTestRAGService(t, llm)
		answer, partial, err := svc.Answer(context.Background(), "what happened?", docs, true)
		require.NoError(t, err)
		assert.Equal(t, "final answer", answer)
		assert.True(t, partial)
	})
}

func TestCollapseUnderBudgetIsNoop(t *testing.T) {
	llm := &mockChatModel{}
	svc := newTestRAGService(t, llm)

	combined := "short combined excerpts"
	out, err := svc.collapse(context.Background(), "q", combined)
	require.NoError(t, err)
	assert.Equal(t, combined, out)
	assert.Zero(t, llm.callCount())
}

func TestCollapseReducesToSingleChunk(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			return "reduced", nil
		},
	}
	cfg := testConfig()
	cfg.RAGTokenMax = 100 // tiny budget, chunk size 8192 via known model
	svc, err := NewRAGService(cfg, llm, database.NewMemoryStore())
	require.NoError(t, err)
	svc.tokenBudget = 100
	svc.splitter = &Splitter{chunkSize: 50, overlap: 5}

	combined := strings.Repeat("Important budget details from the email thread. ", 100)
	out, err := svc.collapse(context.Background(), "what is the budget?", combined)
	require.NoError(t, err)
	assert.Equal(t, "reduced", out)
	assert.Greater(t, llm.callCount(), 1, "pairwise collapse should take multiple reduce calls")
}

func TestAnswerStreamSentinelDeliveredWhole(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) { return "  ", nil },
	}
	svc := newTestRAGService(t, llm)

	var received []string
	err := svc.AnswerStream(context.Background(), "anything?", []types.Document{{Content: "doc"}}, func(token string) {
		received = append(received, token)
	})
	require.NoError(t, err)
	require.Len(t, received, 1, "sentinel must arrive as a single unit")
	assert.Equal(t, NoRelevantInformation, received[0])
}

func TestAnswerStreamTokens(t *testing.T) {
	llm := &mockChatModel{
		generate: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Return any relevant text verbatim") {
				return "the excerpt", nil
			}
			return "streamed final answer", nil
		},
	}
	svc := newTestRAGService(t, llm)

	var sb strings.Builder
	err := svc.AnswerStream(context.Background(), "what?", []types.Document{{Content: "doc"}}, func(token string) {
		sb.WriteString(token)
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed final answer", sb.String())
}

func TestDocumentsFromEmails(t *testing.T) {
	rows := []types.EmailDocument{
		{ID: "msg001", Subject: "Budget", Content: "the content"},
	}
	docs := DocumentsFromEmails(rows)
	require.Len(t, docs, 1)
	assert.Equal(t, "the content", docs[0].Content)
	assert.Equal(t, "msg001", docs[0].Metadata["message_id"])
}
