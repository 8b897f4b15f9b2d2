package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/droidwrap/droidwrap/internal/auth"
)

// AuthHandler handles the admin login exchange.
type AuthHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDisabled):
			WriteBadRequest(w, "Authentication is not configured")
		case errors.Is(err, auth.ErrInvalidCredentials):
			WriteUnauthorized(w, "Invalid credentials")
		default:
			h.logger.Error("login failed", "error", err)
			WriteInternalError(w, "Login failed")
		}
		return
	}
	WriteJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// Status handles GET /auth/status so the UI can tell whether a login is
// required at all.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"enabled": h.auth != nil && h.auth.Enabled()})
}
