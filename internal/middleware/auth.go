// Package middleware provides the HTTP middleware for the ledger API:
// JWT authentication, request logging and prometheus metrics.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jmolina/divvy/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// WithUser returns a context carrying the given identity. Exposed for tests
// that call handlers without going through RequireAuth.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

// RequireAuth validates the Bearer token on every request and adds the user
// identity to the request context. Requests without a valid token get a 401.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, auth.ErrMissingToken)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email)))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
