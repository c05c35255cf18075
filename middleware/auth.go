package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"poopyPalsAPI/internal/user"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey  contextKey = "userID"
	ClerkIDKey contextKey = "clerkID"
)

// UserResolver maps an external identity to the internal user, creating it
// on first sight.
type UserResolver interface {
	ResolveUser(ctx context.Context, externalID string) (*user.User, error)
}

// ClerkAuthMiddleware validates Clerk JWT tokens and resolves the subject to
// an internal user.
func ClerkAuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
				return
			}

			claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
				Token: token,
			})
			if err != nil {
				log.Printf("Token verification failed: %v", err)
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			serveAs(w, r, next, resolver, claims.Subject)
		})
	}
}

// DemoUserMiddleware runs every request as the fixed demo user.
func DemoUserMiddleware(resolver UserResolver, externalID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serveAs(w, r, next, resolver, externalID)
		})
	}
}

func serveAs(w http.ResponseWriter, r *http.Request, next http.Handler, resolver UserResolver, externalID string) {
	u, err := resolver.ResolveUser(r.Context(), externalID)
	if err != nil {
		log.Printf("Failed to resolve user %s: %v", externalID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve user")
		return
	}

	ctx := context.WithValue(r.Context(), ClerkIDKey, externalID)
	ctx = context.WithValue(ctx, UserIDKey, u.ID)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// GetClerkID extracts the external user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok
}

// GetUserID extracts internal user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// WithUserID stores the internal user ID in ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
