package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hostall/hostguard/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing session claims in context
	SessionContextKey contextKey = "session"
)

// SessionRegistry reports whether a session is still live and records
// activity against it. A token naming a superseded or expired session is
// rejected even if the JWT itself is still valid.
type SessionRegistry interface {
	TouchSession(sessionID string) (*models.Session, bool)
}

// SessionMiddleware validates session tokens, checks the live session
// registry, and records the request as user activity.
func SessionMiddleware(tm *SessionTokenManager, registry SessionRegistry) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			// The session may have been superseded by a newer login or
			// forced out by the expiry monitor since the token was issued.
			if _, ok := registry.TouchSession(claims.SessionID); !ok {
				http.Error(w, "session no longer active", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext retrieves session claims injected by SessionMiddleware
func GetSessionFromContext(r *http.Request) *SessionClaims {
	claims, ok := r.Context().Value(SessionContextKey).(*SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
