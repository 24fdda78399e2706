package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/auth"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// OwnerFromContext extracts the authenticated owner ID from the request
// context. Returns uuid.Nil when the request was not authenticated.
func OwnerFromContext(r *http.Request) uuid.UUID {
	owner, ok := r.Context().Value(ownerContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return owner
}

// WithOwner returns a copy of ctx carrying the owner ID. Exposed for tests.
func WithOwner(ctx context.Context, owner uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// Auth creates authentication middleware that validates bearer tokens and
// resolves them to an owner ID.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, tokenString)
			if err != nil {
				log.Printf("Token verification failed: %v", err)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = WithOwner(ctx, auth.OwnerID(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
