package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/droidwrap/droidwrap/internal/auth"
)

type contextKey string

const subjectKey contextKey = "subject"

// GetSubject returns the authenticated subject from the request context.
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates bearer tokens on protected routes. When the auth
// service is disabled (no JWT secret configured) every request passes
// through, which is the default single-user deployment.
type AuthMiddleware struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthMiddleware creates an auth middleware.
func NewAuthMiddleware(authSvc *auth.Service, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: authSvc, logger: logger}
}

// Authenticate validates the Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.auth == nil || !m.auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}

		subject, err := m.auth.ValidateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed", "error", err, "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, subject)))
	})
}

// writeJSONError writes an error body without depending on the handlers
// package, which would create an import cycle.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
