package middleware

import (
	"context"
	"net/http"

	"github.com/rogerio-castellano/cart-sync/internal/auth"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

type contextKey string

const sessionKey = contextKey("session")

// Auth rejects requests without a valid bearer token and stores the caller's
// session in the request context.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "missing or invalid token", http.StatusUnauthorized)
				return
			}

			sess, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the session stored by Auth.
func GetSession(r *http.Request) (models.Session, bool) {
	sess, ok := r.Context().Value(sessionKey).(models.Session)
	return sess, ok
}
