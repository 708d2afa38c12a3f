package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/service"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// RAGHandler serves ingestion, semantic search and question answering.
type RAGHandler struct {
	queue       *asynq.Client
	retriever   *service.Retriever
	rag         *service.RAGService
	userID      string
	defaultTopK int
	llmProvider string
}

func NewRAGHandler(queue *asynq.Client, retriever *service.Retriever, rag *service.RAGService, userID string, defaultTopK int, llmProvider string) *RAGHandler {
	return &RAGHandler{
		queue:       queue,
		retriever:   retriever,
		rag:         rag,
		userID:      userID,
		defaultTopK: defaultTopK,
		llmProvider: llmProvider,
	}
}

// HandleIngest enqueues a background ingestion task and returns 202
// immediately.
func (h *RAGHandler) HandleIngest() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req types.IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
			sendErrorMessage(w, "query is required", http.StatusBadRequest)
			return
		}

		task, err := service.NewRAGIngestTask(req.Query, h.userID)
		if err != nil {
			sendError(w, err)
			return
		}
		info, err := h.queue.EnqueueContext(r.Context(), task)
		if err != nil {
			log.Error().Err(err).Msg("Failed to enqueue ingestion task")
			sendErrorMessage(w, "Failed to start email ingestion", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusAccepted, types.IngestResponse{
			Message: "Email ingestion started in the background.",
			TaskID:  info.ID,
		})
	})
}

// HandleQuery performs a raw semantic search without the answer chain.
func (h *RAGHandler) HandleQuery() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query().Get("q")
		if q == "" {
			sendErrorMessage(w, "q query parameter is required", http.StatusBadRequest)
			return
		}
		topK := h.defaultTopK
		if v := r.URL.Query().Get("top_k"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				sendErrorMessage(w, "top_k must be a positive integer", http.StatusBadRequest)
				return
			}
			topK = n
		}

		rows, err := h.retriever.Retrieve(r.Context(), q, topK, h.userID)
		if err != nil {
			sendError(w, err)
			return
		}
		if rows == nil {
			rows = []types.EmailDocument{}
		}
		sendJSON(w, http.StatusOK, rows)
	})
}

// HandleAsk answers a question over the ingested corpus.
func (h *RAGHandler) HandleAsk() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeAsk(w, r)
		if !ok {
			return
		}

		rows, err := h.retriever.Retrieve(r.Context(), req.Question, req.TopK, h.userID)
		if err != nil {
			sendError(w, err)
			return
		}

		answer, partial, err := h.rag.Answer(r.Context(), req.Question, service.DocumentsFromEmails(rows), req.AllowPartial)
		if err != nil {
			sendError(w, err)
			return
		}
		if rows == nil {
			rows = []types.EmailDocument{}
		}
		sendJSON(w, http.StatusOK, types.AskResponse{
			Answer:          answer,
			SourceDocuments: rows,
			Partial:         partial,
			LLMProvider:     h.llmProvider,
		})
	})
}

// HandleAskStream streams the answer as plain text chunks. Map and collapse
// run to completion first; only the terminal synthesis streams.
func (h *RAGHandler) HandleAskStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeAsk(w, r)
		if !ok {
			return
		}

		rows, err := h.retriever.Retrieve(r.Context(), req.Question, req.TopK, h.userID)
		if err != nil {
			sendError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			sendErrorMessage(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		err = h.rag.AnswerStream(r.Context(), req.Question, service.DocumentsFromEmails(rows), func(token string) {
			if _, err := w.Write([]byte(token)); err != nil {
				log.Warn().Err(err).Msg("Client disconnected during stream")
				return
			}
			flusher.Flush()
		})
		if err != nil {
			// Headers are already sent; the best we can do is cut the stream.
			log.Error().Err(err).Msg("Streaming answer failed")
		}
	})
}

func (h *RAGHandler) decodeAsk(w http.ResponseWriter, r *http.Request) (types.AskRequest, bool) {
	if r.Method != http.MethodPost {
		sendErrorMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
		return types.AskRequest{}, false
	}

	var req types.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		sendErrorMessage(w, "question is required", http.StatusBadRequest)
		return types.AskRequest{}, false
	}
	if req.TopK <= 0 {
		req.TopK = h.defaultTopK
	}
	return req, true
}
