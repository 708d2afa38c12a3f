package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tieubaoca/email-summarizer-be/types"
)

// Pinger reports the liveness of one dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports overall service health plus per-dependency status.
// It sits outside auth so load balancers can probe it.
type HealthHandler struct {
	llmProvider string
	vectorStore string
	cache       Pinger
}

func NewHealthHandler(llmProvider, vectorStore string, cache Pinger) *HealthHandler {
	return &HealthHandler{llmProvider: llmProvider, vectorStore: vectorStore, cache: cache}
}

func (h *HealthHandler) HandleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deps := map[string]string{
			"llm_provider": h.llmProvider,
			"vector_store": h.vectorStore,
		}
		status := "ok"

		if h.cache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.cache.Ping(ctx); err != nil {
				deps["cache"] = "unavailable"
				status = "degraded"
			} else {
				deps["cache"] = "ok"
			}
		}

		sendJSON(w, http.StatusOK, types.HealthResponse{Status: status, Dependencies: deps})
	})
}
