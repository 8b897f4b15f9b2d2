package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/wizard"
)

// SessionsHandler serves the wizard session lifecycle.
type SessionsHandler struct {
	mgr      *wizard.Manager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(mgr *wizard.Manager, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		mgr:      mgr,
		validate: validator.New(),
		logger:   logger,
	}
}

// session resolves the session from the URL, writing 404 on miss.
func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) *wizard.Session {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.mgr.Get(id)
	if err != nil {
		WriteNotFound(w, "Session not found")
		return nil
	}
	return sess
}

// Create handles POST /v1/sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.mgr.Create()
	WriteJSON(w, http.StatusCreated, sess.State())
}

// Get handles GET /v1/sessions/{sessionID}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	WriteJSON(w, http.StatusOK, sess.State())
}

// AnalyzeRequest is the body for POST .../analyze.
type AnalyzeRequest struct {
	Input string `json:"input"`
	Kind  string `json:"kind,omitempty"`
}

// AnalyzeResponse carries the analysis result plus the refreshed state.
type AnalyzeResponse struct {
	Analysis models.AnalysisResult `json:"analysis"`
	State    wizard.State          `json:"state"`
}

// Analyze handles POST /v1/sessions/{sessionID}/analyze.
func (h *SessionsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	res, err := sess.Analyze(r.Context(), req.Input, models.InputKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrEmptyInput):
			WriteBadRequest(w, "Input value is required")
		case errors.Is(err, wizard.ErrWrongStep):
			WriteConflict(w, "Analysis is only available from the source step")
		default:
			WriteInternalError(w, "Analysis failed")
		}
		return
	}

	WriteJSON(w, http.StatusOK, AnalyzeResponse{Analysis: res, State: sess.State()})
}

// ConfigRequest mirrors BuildConfiguration plus the write-only passphrase.
type ConfigRequest struct {
	models.BuildConfiguration
	KeystorePassphrase string `json:"keystore_passphrase,omitempty"`
}

// UpdateConfig handles PUT /v1/sessions/{sessionID}/config.
func (h *SessionsHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	cfg := req.BuildConfiguration
	cfg.KeystorePassphrase = req.KeystorePassphrase

	// Structural validation is a shell concern; the simulator core
	// accepts whatever it is given.
	if err := h.validate.Struct(&cfg); err != nil {
		WriteErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid build configuration", validationDetails(err))
		return
	}

	if err := sess.UpdateConfig(cfg); err != nil {
		WriteConflict(w, "Configuration can only be edited in the configuration step")
		return
	}
	WriteJSON(w, http.StatusOK, sess.State())
}

// StartBuild handles POST /v1/sessions/{sessionID}/build.
func (h *SessionsHandler) StartBuild(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	if err := sess.StartBuild(); err != nil {
		if errors.Is(err, wizard.ErrWrongStep) {
			WriteConflict(w, "Builds start from the configuration step")
			return
		}
		h.logger.Error("failed to start build", "error", err, "session_id", sess.ID)
		WriteInternalError(w, "Failed to start build")
		return
	}
	WriteJSON(w, http.StatusAccepted, sess.State())
}

// Back handles POST /v1/sessions/{sessionID}/back. Invalid transitions are
// no-ops: the state is returned unchanged.
func (h *SessionsHandler) Back(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	sess.Back()
	WriteJSON(w, http.StatusOK, sess.State())
}

// Configure handles POST /v1/sessions/{sessionID}/configure. Refused as a
// no-op while a run is ticking.
func (h *SessionsHandler) Configure(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	sess.Configure()
	WriteJSON(w, http.StatusOK, sess.State())
}

// ReportResponse is the body for GET .../report.
type ReportResponse struct {
	Ready  bool   `json:"ready"`
	Report string `json:"report,omitempty"`
}

// Report handles GET /v1/sessions/{sessionID}/report.
func (h *SessionsHandler) Report(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	report, ready := sess.Report()
	WriteJSON(w, http.StatusOK, ReportResponse{Ready: ready, Report: report})
}

// Logs handles GET /v1/sessions/{sessionID}/logs.
func (h *SessionsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": sess.Logs()})
}

// validationDetails flattens validator errors into field → failed rule.
func validationDetails(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
