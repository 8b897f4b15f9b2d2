package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/droidwrap/droidwrap/internal/store"
)

// RunsHandler serves the persisted build run history.
type RunsHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(st store.Store, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{store: st, logger: logger}
}

const defaultRunsLimit = 50

// List handles GET /v1/runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			WriteBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		WriteInternalError(w, "Failed to list runs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// Get handles GET /v1/runs/{runID}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.Runs().Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Run not found")
			return
		}
		h.logger.Error("failed to get run", "error", err)
		WriteInternalError(w, "Failed to get run")
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// Logs handles GET /v1/runs/{runID}/logs - the persisted console snapshot.
func (h *RunsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := h.store.Runs().Get(r.Context(), runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Run not found")
			return
		}
		h.logger.Error("failed to get run", "error", err)
		WriteInternalError(w, "Failed to get run")
		return
	}

	entries, err := h.store.Logs().List(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list run logs", "error", err)
		WriteInternalError(w, "Failed to list run logs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
