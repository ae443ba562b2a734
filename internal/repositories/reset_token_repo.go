package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/hostall/hostguard/internal/database"
	"github.com/hostall/hostguard/internal/models"
	"github.com/jackc/pgx/v5"
)

// ResetTokenRepository handles password reset token data access
type ResetTokenRepository struct {
	db *database.DB
}

// NewResetTokenRepository creates a new ResetTokenRepository
func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func scanResetTokenRow(row rowScanner) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken

	err := row.Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &t, nil
}

// Create inserts a new reset token
func (r *ResetTokenRepository) Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (email, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, email, token_hash, expires_at, used_at, created_at
	`

	token, err := scanResetTokenRow(r.db.Pool.QueryRow(ctx, query, email, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}

	return token, nil
}

// GetByTokenHash retrieves a token by its hash
func (r *ResetTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, email, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`

	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, query, tokenHash))
}

// Consume marks a token as used and writes the new password hash in one
// transaction. A token can only be consumed once; losing the race returns
// ErrNotFound with the account untouched.
func (r *ResetTokenRepository) Consume(ctx context.Context, id, email, passwordHash string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		consume := `
			UPDATE password_reset_tokens
			SET used_at = NOW()
			WHERE id = $1 AND used_at IS NULL
		`

		result, err := tx.Exec(ctx, consume, id)
		if err != nil {
			return fmt.Errorf("failed to mark reset token as used: %w", database.MapPostgresError(err))
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		update := `
			UPDATE accounts
			SET password_hash = $1, updated_at = NOW()
			WHERE email = $2
		`

		if _, err := tx.Exec(ctx, update, passwordHash, email); err != nil {
			return fmt.Errorf("failed to update password hash: %w", database.MapPostgresError(err))
		}
		return nil
	})
}

// DeleteExpired removes expired tokens
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at <= NOW()`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
