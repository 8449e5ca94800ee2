package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"deo-backend/internal/models"
	"deo-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionResolver resolves a bearer token to its live session
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.Session, error)
}

// AuthMiddleware rejects requests without a live session and stores the
// session in the request context
func AuthMiddleware(gate SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			session, err := gate.CurrentUser(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, services.ErrNoSession) {
					respondError(w, "Invalid token", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Msg("Failed to resolve session")
				respondError(w, "Failed to resolve session", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession returns a context carrying session
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *models.Session {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if session := GetSession(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
