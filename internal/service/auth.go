package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rookgm/bundlehub/internal/auth"
	"github.com/rookgm/bundlehub/internal/models"
)

// AuthService authenticates admins
type AuthService struct {
	repo  AdminRepository
	token TokenService
}

// NewAuthService creates new AuthService instance
func NewAuthService(repo AdminRepository, token TokenService) *AuthService {
	return &AuthService{
		repo:  repo,
		token: token,
	}
}

// Login checks credentials and returns admin token
func (as *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	admin, err := as.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrInvalidCredentials
		}
		return "", err
	}

	if !auth.CheckPassword(admin.PasswordHash, password) {
		return "", models.ErrInvalidCredentials
	}

	return as.token.CreateToken(admin)
}

// EnsureAdmin creates admin account or resets its password
func (as *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return models.NewValidationError("password", "must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = as.repo.UpsertAdmin(ctx, &models.Admin{Email: email, PasswordHash: hash})
	return err
}

// VerifyToken returns payload of valid token
func (as *AuthService) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	return as.token.VerifyToken(tokenString)
}
