package handler

import (
	"context"
	"net/http"

	"github.com/rookgm/bundlehub/internal/middleware"
)

// tokenMaxAge matches token lifetime
const tokenMaxAge = 24 * 60 * 60

type AuthService interface {
	// Login checks admin credentials and returns token
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler represents HTTP handler for admin authentication
type AuthHandler struct {
	svc          AuthService
	resp         *Responder
	secureCookie bool
}

// NewAuthHandler creates new AuthHandler instance
func NewAuthHandler(svc AuthService, resp *Responder, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, resp: resp, secureCookie: secureCookie}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginAdmin authenticates admin
// 200 — администратор аутентифицирован;
// 400 — неверный формат запроса;
// 401 — неверная пара логин/пароль;
// 500 — внутренняя ошибка сервера.
func (ah *AuthHandler) LoginAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			ah.resp.Error(w, r, err)
			return
		}

		token, err := ah.svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			ah.resp.Error(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AuthCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   tokenMaxAge,
			HttpOnly: true,
			Secure:   ah.secureCookie,
			SameSite: http.SameSiteStrictMode,
		})

		ah.resp.JSON(w, http.StatusOK, loginResponse{Token: token})
	}
}
