package models

import "time"

// Account represents an admin account persisted in the credential store.
// The store, not the guard, is the source of truth for lockout state and
// the failed-attempt counter.
type Account struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	Name         string     `db:"name"`
	PasswordHash string     `db:"password_hash"`
	Role         string     `db:"role"`
	FailedCount  int        `db:"failed_count"`
	LockedUntil  *time.Time `db:"locked_until"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// IsLocked reports whether the account is under a server-side lockout at t.
func (a *Account) IsLocked(t time.Time) bool {
	return a.LockedUntil != nil && t.Before(*a.LockedUntil)
}

// FailedLoginResult is returned by the store after recording a failed login.
type FailedLoginResult struct {
	Locked      bool
	Attempts    int
	LockedUntil *time.Time
}
