package types

const (
	TypeWebsocketPing   = "ping"
	TypeWebsocketPong   = "pong"
	TypeWebsocketAsk    = "ask"
	TypeWebsocketToken  = "token"
	TypeWebsocketAnswer = "answer"
	TypeWebsocketError  = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketAskPayload struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketTokenPayload struct {
	Token string `json:"token"`
}

type WebSocketErrorPayload struct {
	Message string `json:"message"`
}

// StreamHandler receives generated tokens as they arrive from the model.
type StreamHandler func(token string)
