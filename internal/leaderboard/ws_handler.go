package leaderboard

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
	ws "github.com/gokatarajesh/quiz-results/pkg/http/ws"
)

// SocketHandler upgrades authenticated players to a WebSocket that receives
// result_ready events.
type SocketHandler struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
}

func NewSocketHandler(hub *ws.Hub, upgrader *websocket.Upgrader, logger zerolog.Logger) *SocketHandler {
	return &SocketHandler{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "results_ws").Logger(),
	}
}

// HandleWebSocket expects auth.Middleware to have validated ?token= already.
// Route: GET /ws/results?token={jwt}
func (h *SocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerID(r.Context())
	if playerID == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger.With().Str("player_id", playerID).Logger())
	h.hub.RegisterConnection(playerID, conn)
	go conn.WritePump()

	conn.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		default:
			errMsg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeUnknownMessageType,
				Message: "Unknown message type: " + msg.Type,
			})
			if err != nil {
				return err
			}
			return conn.Send(errMsg)
		}
	})

	h.hub.UnregisterConnection(playerID, conn)
}
