package models

import "time"

// PasswordResetToken represents a single-use password reset token. Only the
// SHA-256 hash of the token is stored.
type PasswordResetToken struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsValid reports whether the token is unused and unexpired at t.
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
