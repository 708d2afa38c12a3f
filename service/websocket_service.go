package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// WebSocketService serves the interactive ask endpoint: one question per
// message, answer tokens streamed back as they are generated.
type WebSocketService struct {
	retriever   *Retriever
	rag         *RAGService
	defaultTopK int
	upgrader    websocket.Upgrader
}

func NewWebSocketService(retriever *Retriever, rag *RAGService, defaultTopK int) *WebSocketService {
	return &WebSocketService{
		retriever:   retriever,
		rag:         rag,
		defaultTopK: defaultTopK,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleAsk(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "Error processing message")
			continue
		}
		payloadBytes, err := json.Marshal(req.Payload)
		if err != nil {
			s.writeError(conn, "Error processing message")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketPing:
			if err := conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong}); err != nil {
				log.Error().Err(err).Msg("WebSocket write error")
			}
		case types.TypeWebsocketAsk:
			var payload types.WebSocketAskPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil || payload.Question == "" {
				s.writeError(conn, "Invalid ask payload")
				continue
			}
			s.answer(ctx, conn, payload)
		default:
			log.Warn().Str("type", req.Type).Msg("Invalid websocket message type")
		}
	}
}

func (s *WebSocketService) answer(ctx context.Context, conn *websocket.Conn, payload types.WebSocketAskPayload) {
	topK := payload.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	rows, err := s.retriever.Retrieve(ctx, payload.Question, topK, "")
	if err != nil {
		log.Error().Err(err).Msg("Retrieval failed")
		s.writeError(conn, "An error occurred while answering the question.")
		return
	}

	err = s.rag.AnswerStream(ctx, payload.Question, DocumentsFromEmails(rows), func(token string) {
		msg := types.WebSocketResponse{
			Type:    types.TypeWebsocketToken,
			Payload: types.WebSocketTokenPayload{Token: token},
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Error().Err(err).Msg("WebSocket write error")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("Streaming answer failed")
		s.writeError(conn, "An error occurred while answering the question.")
		return
	}

	// Terminal marker so the client knows the stream is complete
	if err := conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketAnswer}); err != nil {
		log.Error().Err(err).Msg("WebSocket write error")
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, message string) {
	msg := types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: types.WebSocketErrorPayload{Message: message},
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Error().Err(err).Msg("WebSocket write error")
	}
}
