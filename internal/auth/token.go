// Package auth issues and verifies admin session tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
)

const tokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Token creates and verifies HS256 signed tokens
type Token struct {
	key []byte
	now func() time.Time
}

// NewAuthToken creates new Token instance
func NewAuthToken(key []byte) *Token {
	return &Token{key: key, now: time.Now}
}

// CreateToken returns signed token for admin
func (t *Token) CreateToken(admin *models.Admin) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(admin.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email: admin.Email,
		Role:  models.RoleAdmin,
	})

	return token.SignedString(t.key)
}

// VerifyToken checks token signature and expiry and returns its payload
func (t *Token) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return &models.TokenPayload{
		AdminID: id,
		Email:   c.Email,
		Role:    c.Role,
	}, nil
}
