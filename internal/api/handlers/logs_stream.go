package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/droidwrap/droidwrap/internal/wizard"
)

// LogStreamHandler streams the build console in real time via Server-Sent
// Events. Subscribers get a snapshot replay followed by live entries from
// the broker; the subscription is taken before the replay so nothing
// published in between is lost.
type LogStreamHandler struct {
	mgr    *wizard.Manager
	logger *slog.Logger
}

// NewLogStreamHandler creates a log stream handler.
func NewLogStreamHandler(mgr *wizard.Manager, logger *slog.Logger) *LogStreamHandler {
	return &LogStreamHandler{mgr: mgr, logger: logger}
}

// Stream handles GET /v1/sessions/{sessionID}/logs/stream.
func (h *LogStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteInternalError(w, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	sub := h.mgr.Broker().Subscribe(sess.ID)
	defer h.mgr.Broker().Unsubscribe(sub)

	h.logger.Info("log stream started", "session_id", sess.ID)
	h.sendEvent(w, flusher, "connected", map[string]string{"session_id": sess.ID})

	// Replay the snapshot, remembering IDs so live entries that were
	// already in the snapshot are not sent twice.
	seen := make(map[string]struct{})
	var lastRunID string
	for _, e := range sess.Logs() {
		seen[e.ID] = struct{}{}
		lastRunID = e.RunID
		h.sendEvent(w, flusher, "log", e)
	}

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	ctx := r.Context()
	done := sess.RunDone() // nil (blocks forever) when no run was started

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("log stream closed by client", "session_id", sess.ID)
			return
		case <-pingTicker.C:
			h.sendEvent(w, flusher, "ping", map[string]int64{"time": time.Now().Unix()})
		case <-done:
			h.sendEvent(w, flusher, "run_status", h.runStatus(sess))
			// Disarm until a new run shows up in the entry stream.
			done = nil
		case e, ok := <-sub.Ch:
			if !ok {
				return
			}
			if _, dup := seen[e.ID]; dup {
				continue
			}
			if e.RunID != lastRunID {
				lastRunID = e.RunID
				done = sess.RunDone()
			}
			h.sendEvent(w, flusher, "log", e)
		}
	}
}

func (h *LogStreamHandler) runStatus(sess *wizard.Session) map[string]any {
	st := sess.State()
	out := map[string]any{}
	if st.Run != nil {
		out["run_id"] = st.Run.RunID
		out["status"] = st.Run.Status
		out["report_ready"] = st.Run.ReportReady
		if st.Run.OutputPath != "" {
			out["output_path"] = st.Run.OutputPath
		}
	}
	return out
}

func (h *LogStreamHandler) session(w http.ResponseWriter, r *http.Request) *wizard.Session {
	sess, err := h.mgr.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteNotFound(w, "Session not found")
		return nil
	}
	return sess
}

// sendEvent writes one Server-Sent Event and flushes it.
func (h *LogStreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal event data", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
