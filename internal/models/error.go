package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("data not found")
	ErrConflict            = errors.New("data conflicts with existing data")
	ErrInvalidState        = errors.New("operation is not allowed in current order status")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired verification code")
	ErrEmailNotVerified    = errors.New("email is not verified")
	ErrForbidden           = errors.New("admin privilege required")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrRateLimited         = errors.New("too many requests")
	ErrStorageUnavailable  = errors.New("database is unavailable")
	ErrNotification        = errors.New("notification delivery failed")
)

// ValidationError describes invalid input field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
