package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/email-summarizer-be/types"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler("gemini", "pgvector", fakePinger{})
		rec := httptest.NewRecorder()
		h.HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp types.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "gemini", resp.Dependencies["llm_provider"])
		assert.Equal(t, "ok", resp.Dependencies["cache"])
	})

	t.Run("degraded when cache is down", func(t *testing.T) {
		h := NewHealthHandler("gemini", "pgvector", fakePinger{err: errors.New("down")})
		rec := httptest.NewRecorder()
		h.HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var resp types.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Dependencies["cache"])
	})
}
