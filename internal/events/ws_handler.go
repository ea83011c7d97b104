package events

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/auth"
	httperrors "github.com/gokatarajesh/practice-engine/pkg/http/errors"
	ws "github.com/gokatarajesh/practice-engine/pkg/http/ws"
)

// WSHandler accepts /ws/practice connections so a student's open tabs receive
// session events. Browsers cannot set headers on upgrade, so the access token
// comes in the token query parameter.
type WSHandler struct {
	hub      *ws.Hub
	tokens   auth.TokenValidator
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(hub *ws.Hub, tokens auth.TokenValidator, upgrader websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		tokens:   tokens,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "practice_ws").Logger(),
	}
}

// HandleWebSocket upgrades the HTTP connection and keeps it registered until the client leaves.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	studentID := claims.StudentID
	wsConn := ws.NewConnection(conn, h.logger.With().Str("student_id", studentID.String()).Logger())
	h.hub.Register(studentID, wsConn)
	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			return wsConn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		}
		return nil
	})

	h.hub.Unregister(studentID, wsConn)
}
