package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/geoguess/internal/api/apierr"
	"github.com/mcoot/geoguess/internal/model"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Auth requires a session token and stores it in the request context.
// Whether the token is bound is decided by the coordinator per command.
func Auth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, model.SessionHandle(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the session token from the request
func ExtractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the session handle from the request context
func GetSession(ctx context.Context) model.SessionHandle {
	handle, _ := ctx.Value(sessionContextKey).(model.SessionHandle)
	return handle
}

// MustGetSession returns the session handle or panics
func MustGetSession(ctx context.Context) model.SessionHandle {
	handle := GetSession(ctx)
	if handle == "" {
		panic("no session in context - auth middleware not applied?")
	}
	return handle
}
