package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/session"
)

const (
	// wsIdleTimeout closes a chat socket with no client frames.
	wsIdleTimeout = 10 * time.Minute

	// wsWriteWait bounds a single frame write.
	wsWriteWait = 10 * time.Second
)

// Same-origin check is the Upgrader default (CheckOrigin nil).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleWebSocket handles GET /api/ws: chat over a websocket. Each client
// frame is a MessageRequest; each server frame is a reply. Frames without a
// session id use one generated for the connection.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxMessageBytes)
	connSession := session.NewAnonymousID()
	slog.Debug("websocket connected", "remote", r.RemoteAddr, "session_id", connSession)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", "error", err)
			}
			return
		}

		var req MessageRequest
		var out any
		if err := json.Unmarshal(data, &req); err != nil {
			out = map[string]any{"error": map[string]any{
				"code":    string(errors.ErrInvalidRequest),
				"message": "frame must be JSON: {\"sessionId\": string, \"text\": string}",
				"status":  http.StatusBadRequest,
			}}
		} else {
			if req.SessionID == "" {
				req.SessionID = connSession
			}
			reply, err := h.chat(r, req)
			if err != nil {
				slog.Warn("websocket chat failed", "error", err)
				return
			}
			out = reply
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
}
