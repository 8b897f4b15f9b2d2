package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/droidwrap/droidwrap/internal/wizard"
)

// LogWSHandler streams the build console over a WebSocket, for clients that
// cannot hold an SSE connection. Frames carry the same JSON entries as the
// SSE stream.
type LogWSHandler struct {
	mgr      *wizard.Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLogWSHandler creates a WebSocket log handler.
func NewLogWSHandler(mgr *wizard.Manager, logger *slog.Logger) *LogWSHandler {
	return &LogWSHandler{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The API already sits behind CORS; the websocket handshake
			// accepts the same origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// Stream handles GET /v1/sessions/{sessionID}/logs/ws.
func (h *LogWSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteNotFound(w, "Session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.mgr.Broker().Subscribe(sess.ID)
	defer h.mgr.Broker().Unsubscribe(sub)

	h.logger.Info("websocket log stream started", "session_id", sess.ID)

	// Reader goroutine: discard client frames, surface the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	seen := make(map[string]struct{})
	for _, e := range sess.Logs() {
		seen[e.ID] = struct{}{}
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			h.logger.Info("websocket closed by client", "session_id", sess.ID)
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-sub.Ch:
			if !ok {
				return
			}
			if _, dup := seen[e.ID]; dup {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
