package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostall/hostguard/internal/models"
	pkgauth "github.com/hostall/hostguard/pkg/auth"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

// ResetTokenStore persists single-use reset tokens. Consume burns the token
// and applies the new password hash atomically.
type ResetTokenStore interface {
	Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, id, email, passwordHash string) error
}

// PasswordStore is the slice of the account store the reset flow touches
type PasswordStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ClearFailedAttempts(ctx context.Context, email string) error
}

// PasswordResetService runs the request/confirm reset flow. Request never
// reveals whether an account exists; Confirm consumes the token exactly once.
type PasswordResetService struct {
	tokens      ResetTokenStore
	accounts    PasswordStore
	limiter     *RateLimitService
	events      EventRecorder
	email       EmailService
	tokenExpiry time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	tokens ResetTokenStore,
	accounts PasswordStore,
	limiter *RateLimitService,
	events EventRecorder,
	email EmailService,
	tokenExpiry time.Duration,
	logger *slog.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		tokens:      tokens,
		accounts:    accounts,
		limiter:     limiter,
		events:      events,
		email:       email,
		tokenExpiry: tokenExpiry,
		logger:      logger,
		now:         time.Now,
	}
}

// Request issues a reset token and mails it to the account. Unknown emails
// return nil so the caller's response is identical either way.
func (s *PasswordResetService) Request(ctx context.Context, email, ip string) error {
	decision := s.limiter.Check(models.ActionPasswordReset, email)
	if !decision.Allowed {
		return &RateLimitedError{RetryAfter: decision.RetryAfter, Message: decision.Message}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	rawToken, tokenHash, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.tokenExpiry)
	if _, err := s.tokens.Create(ctx, account.Email, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.email.SendPasswordResetEmail(ctx, account.Email, rawToken, expiresAt); err != nil {
		// Token is already stored; the user can retry the request.
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("password reset email sent",
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
		slog.String("ip", ip))
	return nil
}

// Confirm validates the token, applies the new password, and consumes the
// token. A consumed or expired token fails with a generic error.
func (s *PasswordResetService) Confirm(ctx context.Context, rawToken, newPassword, ip, userAgent string) error {
	tokenHash := hashResetToken(rawToken)

	token, err := s.tokens.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrVerificationFailed
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if !token.IsValid(s.now()) {
		return models.ErrVerificationFailed
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.tokens.Consume(ctx, token.ID, token.Email, passwordHash); err != nil {
		// Lost the race with a concurrent confirm; treat as already consumed.
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrVerificationFailed
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	if err := s.accounts.ClearFailedAttempts(ctx, token.Email); err != nil {
		s.logger.Warn("failed to clear failed attempts after reset",
			slog.String("email", pkglogger.SanitizedEmail(token.Email)),
			slog.Any("error", err))
	}
	s.limiter.Clear(models.ActionLogin, token.Email)

	s.events.Record(models.SecurityEvent{
		Type:      models.EventPasswordReset,
		UserEmail: token.Email,
		Success:   true,
		ClientIP:  ip,
		UserAgent: userAgent,
	})
	return nil
}

func generateResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
