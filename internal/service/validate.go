package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rookgm/bundlehub/internal/models"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 254
	maxSubjectLen = 200
	maxTextLen    = 5000
)

// normalizeEmail trims and lowercases email and checks its format
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", models.NewValidationError("email", "is required")
	}
	if len(email) > maxEmailLen {
		return "", models.NewValidationError("email", "is too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.NewValidationError("email", "is not a valid email address")
	}

	return email, nil
}

// requireText trims s and checks that it is not empty and fits max runes
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(field, "is too long")
	}
	return s, nil
}
