package middleware

import (
	"net"
	"net/http"

	rl "github.com/rogerio-castellano/cart-sync/internal/http/rate_limiter"
)

// RateLimit answers 429 once a client has used up its bucket. Authenticated
// callers are limited per user, everybody else per IP.
func RateLimit(limiter *rl.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientID(r)) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientID(r *http.Request) string {
	if sess, ok := GetSession(r); ok {
		return "user:" + sess.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
