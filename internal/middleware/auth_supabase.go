package middleware

import (
	"context"
	"net/http"
	"strings"
)

// TokenVerifier resolves a bearer access token to a user id.
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (string, error)
}

type userKey string

const userIDKey userKey = "user_id"

// Auth authenticates REST requests against the identity provider and stores
// the resolved user id on the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			userID, err := verifier.GetUser(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid user token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
