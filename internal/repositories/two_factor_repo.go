package repositories

import (
	"context"
	"fmt"

	"github.com/hostall/hostguard/internal/database"
	"github.com/hostall/hostguard/internal/models"
)

// TwoFactorRepository handles per-account TOTP settings
type TwoFactorRepository struct {
	db *database.DB
}

// NewTwoFactorRepository creates a new TwoFactorRepository
func NewTwoFactorRepository(db *database.DB) *TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

// Upsert stores the two-factor settings for an account, replacing any
// previous enrollment
func (r *TwoFactorRepository) Upsert(ctx context.Context, settings *models.TwoFactorSettings) error {
	query := `
		INSERT INTO two_factor_settings (email, enabled, secret_encrypted, secret_nonce, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (email) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    secret_encrypted = EXCLUDED.secret_encrypted,
		    secret_nonce = EXCLUDED.secret_nonce,
		    enrolled_at = EXCLUDED.enrolled_at,
		    updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		settings.Email,
		settings.Enabled,
		settings.SecretEncrypted,
		settings.SecretNonce,
		settings.EnrolledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert two-factor settings: %w", database.MapPostgresError(err))
	}
	return nil
}

// GetByEmail retrieves two-factor settings for an account
func (r *TwoFactorRepository) GetByEmail(ctx context.Context, email string) (*models.TwoFactorSettings, error) {
	query := `
		SELECT email, enabled, secret_encrypted, secret_nonce, enrolled_at, updated_at
		FROM two_factor_settings
		WHERE email = $1
	`

	var s models.TwoFactorSettings
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&s.Email, &s.Enabled, &s.SecretEncrypted, &s.SecretNonce, &s.EnrolledAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

// Delete removes the two-factor enrollment for an account
func (r *TwoFactorRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM two_factor_settings WHERE email = $1`

	_, err := r.db.Pool.Exec(ctx, query, email)
	return database.MapPostgresError(err)
}
