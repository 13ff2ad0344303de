package handler

import (
	"context"
	"net/http"

	"github.com/rookgm/bundlehub/internal/middleware"
	"github.com/rookgm/bundlehub/internal/models"
)

type contextKey string

const (
	authPayloadKey contextKey = "auth_payload"
)

// TokenVerifier verifies admin token
type TokenVerifier interface {
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// AuthMiddleware gets the token from the cookie or bearer header and passes its payload to the context
// 401 — токен отсутствует или недействителен.
func AuthMiddleware(ts TokenVerifier, resp *Responder) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := middleware.TokenFromRequest(r)
			if !ok {
				resp.Fail(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}

			payload, err := ts.VerifyToken(token)
			if err != nil {
				resp.Fail(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin passes only requests authenticated with admin role
// 403 — недостаточно прав.
func RequireAdmin(resp *Responder) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, _ := getAuthPayload(r.Context(), authPayloadKey)
			if !payload.IsAdmin() {
				resp.Error(w, r, models.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getAuthPayload extracts authorization token payload from context
func getAuthPayload(ctx context.Context, key contextKey) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(key).(*models.TokenPayload)
	return payload, ok
}
