package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ClientIP takes client address from X-Forwarded-For / X-Real-IP only when
// service runs behind trusted proxy, otherwise the connection address is kept
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	if trustProxy {
		return chimw.RealIP
	}
	return func(next http.Handler) http.Handler {
		return next
	}
}
