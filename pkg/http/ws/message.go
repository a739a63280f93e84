package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeResultReady   = "result_ready"
	TypePong          = "pong"
	TypeError         = "error"
	TypeServerClosing = "server_closing"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// ResultReadyPayload tells a player their attempt has been scored.
type ResultReadyPayload struct {
	ResultID  string  `json:"result_id"`
	QuizID    string  `json:"quiz_id"`
	QuizTitle string  `json:"quiz_title"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
	Rank      int     `json:"rank"`
}

// ServerClosingPayload asks clients to reconnect to another instance.
type ServerClosingPayload struct {
	ReconnectAfterSeconds int `json:"reconnect_after_seconds"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}
