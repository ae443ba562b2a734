package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/hostall/hostguard/internal/database"
	"github.com/hostall/hostguard/internal/models"
)

// rowScanner abstracts pgx.Row/pgx.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...any) error
}

// AccountRepository handles admin account data access. The server-side
// failed-login counter and lockout state live here, not in the guard.
type AccountRepository struct {
	db              *database.DB
	maxFailedLogins int
	lockoutDuration time.Duration
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.DB, maxFailedLogins int, lockoutDuration time.Duration) *AccountRepository {
	return &AccountRepository{
		db:              db,
		maxFailedLogins: maxFailedLogins,
		lockoutDuration: lockoutDuration,
	}
}

func scanAccountRow(row rowScanner) (*models.Account, error) {
	var a models.Account

	err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role,
		&a.FailedCount, &a.LockedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, name, password_hash, role, failed_count, locked_until, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
}

// IsLocked reports whether the account is under an active lockout
func (r *AccountRepository) IsLocked(ctx context.Context, email string) (bool, error) {
	account, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return account.IsLocked(time.Now()), nil
}

// RecordFailedLogin increments the failed-login counter and applies a
// lockout once the counter reaches the configured maximum. The counter and
// lockout live server-side so they survive client restarts.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, email, ip string) (*models.FailedLoginResult, error) {
	query := `
		UPDATE accounts
		SET failed_count = failed_count + 1,
		    locked_until = CASE WHEN failed_count + 1 >= $2 THEN NOW() + $3::interval ELSE locked_until END,
		    updated_at = NOW()
		WHERE email = $1
		RETURNING failed_count, locked_until
	`

	interval := fmt.Sprintf("%d seconds", int(r.lockoutDuration.Seconds()))

	var result models.FailedLoginResult
	err := r.db.Pool.QueryRow(ctx, query, email, r.maxFailedLogins, interval).
		Scan(&result.Attempts, &result.LockedUntil)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	result.Locked = result.LockedUntil != nil && time.Now().Before(*result.LockedUntil)
	return &result, nil
}

// ClearFailedAttempts resets the failed-login counter and lockout
func (r *AccountRepository) ClearFailedAttempts(ctx context.Context, email string) error {
	query := `
		UPDATE accounts
		SET failed_count = 0, locked_until = NULL, updated_at = NOW()
		WHERE email = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, email)
	return database.MapPostgresError(err)
}
