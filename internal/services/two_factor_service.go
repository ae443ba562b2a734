package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/models"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

// TwoFactorStore persists per-account TOTP settings in the external store
type TwoFactorStore interface {
	Upsert(ctx context.Context, settings *models.TwoFactorSettings) error
	GetByEmail(ctx context.Context, email string) (*models.TwoFactorSettings, error)
	Delete(ctx context.Context, email string) error
}

// TwoFactorService handles TOTP enrollment, verification, and teardown.
// Verification failures are logged but never feed the login lockout; only
// the password rate limiter drives lockout.
type TwoFactorService struct {
	repo    TwoFactorStore
	totp    *auth.TOTPManager
	events  EventRecorder
	logger  *slog.Logger
	env     string
	devCode string
	now     func() time.Time
}

// NewTwoFactorService creates a new TwoFactorService. devCode is a fixed
// code accepted outside production; it is rejected unconditionally when
// env is "production".
func NewTwoFactorService(repo TwoFactorStore, totp *auth.TOTPManager, events EventRecorder, logger *slog.Logger, env, devCode string, nowFn func() time.Time) *TwoFactorService {
	if nowFn == nil {
		nowFn = time.Now
	}

	return &TwoFactorService{
		repo:    repo,
		totp:    totp,
		events:  events,
		logger:  logger,
		env:     env,
		devCode: devCode,
		now:     nowFn,
	}
}

// Setup begins enrollment for an authenticated account. The secret is
// persisted disabled; VerifyAndEnable flips it on once the user proves
// their authenticator app produces matching codes.
func (s *TwoFactorService) Setup(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
	material, err := s.totp.GenerateSetup(email)
	if err != nil {
		s.logger.Error("failed to generate TOTP setup", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	settings := &models.TwoFactorSettings{
		Email:           email,
		Enabled:         false,
		SecretEncrypted: material.SecretEncrypted,
		SecretNonce:     material.SecretNonce,
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		s.logger.Error("failed to store two-factor settings", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("two-factor setup initiated",
		slog.String("user_email", pkglogger.SanitizedEmail(email)))

	return &models.TwoFactorSetup{
		Secret:        material.Secret,
		OtpauthURL:    material.OtpauthURL,
		QRCodeDataURL: material.QRCodeDataURL,
	}, nil
}

// VerifyAndEnable validates the first code and enables two-factor
func (s *TwoFactorService) VerifyAndEnable(ctx context.Context, email, code string) error {
	settings, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTwoFactorNotEnabled
		}
		s.logger.Error("failed to load two-factor settings", slog.Any("error", err))
		return models.ErrInternalServer
	}

	ok, err := s.checkCode(settings, code)
	if err != nil {
		return err
	}
	if !ok {
		s.events.Record(models.SecurityEvent{
			Type:      models.EventTwoFactorFailed,
			UserEmail: email,
			Success:   false,
			Details:   "setup_verification",
		})
		return models.ErrVerificationFailed
	}

	now := s.now()
	settings.Enabled = true
	settings.EnrolledAt = &now

	if err := s.repo.Upsert(ctx, settings); err != nil {
		s.logger.Error("failed to enable two-factor", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.events.Record(models.SecurityEvent{
		Type:      models.EventTwoFactorEnabled,
		UserEmail: email,
		Success:   true,
	})

	return nil
}

// Disable clears the stored secret and flag for an account
func (s *TwoFactorService) Disable(ctx context.Context, email string) error {
	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTwoFactorNotEnabled
		}
		s.logger.Error("failed to load two-factor settings", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.Delete(ctx, email); err != nil {
		s.logger.Error("failed to delete two-factor settings", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.events.Record(models.SecurityEvent{
		Type:      models.EventTwoFactorDisabled,
		UserEmail: email,
		Success:   true,
	})

	return nil
}

// IsEnabled is a read-through query against the store
func (s *TwoFactorService) IsEnabled(ctx context.Context, email string) (bool, error) {
	settings, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return settings.Enabled, nil
}

// VerifyCode validates a code for an enrolled account. Failures are
// logged as security events but do not trigger lockout.
func (s *TwoFactorService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	settings, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.ErrTwoFactorNotEnabled
		}
		return false, err
	}

	if !settings.Enabled {
		return false, models.ErrTwoFactorNotEnabled
	}

	ok, err := s.checkCode(settings, code)
	if err != nil {
		return false, err
	}
	if !ok {
		s.events.Record(models.SecurityEvent{
			Type:      models.EventTwoFactorFailed,
			UserEmail: email,
			Success:   false,
			Details:   "invalid_code",
		})
	}
	return ok, nil
}

// checkCode decrypts the secret and validates the code, honoring the
// development bypass outside production.
func (s *TwoFactorService) checkCode(settings *models.TwoFactorSettings, code string) (bool, error) {
	if s.env != "production" && s.devCode != "" && code == s.devCode {
		return true, nil
	}

	secretBytes, err := s.totp.DecryptSecret(settings.SecretEncrypted, settings.SecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	valid, err := s.totp.ValidateCode(string(secretBytes), code, s.now())
	if err != nil {
		s.logger.Error("TOTP validation error", slog.Any("error", err))
		return false, models.ErrVerificationFailed
	}

	return valid, nil
}
