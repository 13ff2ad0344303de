package models

import "time"

// RoleAdmin is role of back office users
const RoleAdmin = "admin"

// Admin is back office user
type Admin struct {
	ID           uint64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// TokenPayload contains auth token claims
type TokenPayload struct {
	AdminID uint64
	Email   string
	Role    string
}

// IsAdmin reports whether payload grants administrative privilege
func (p *TokenPayload) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
