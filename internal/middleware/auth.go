package middleware

import (
	"net/http"
	"strings"
)

// AuthCookieName is cookie carrying admin token
const AuthCookieName = "auth_token"

// TokenFromRequest extracts auth token from cookie or Authorization bearer header
func TokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)

	return token, token != ""
}
