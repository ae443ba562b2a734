package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/metrics"
	"github.com/hostall/hostguard/internal/models"
	pkgauth "github.com/hostall/hostguard/pkg/auth"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

// CredentialStore is the slice of the external store the login guard
// consumes. The store owns password verification state: the failed-login
// counter and lockout are authoritative there.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	IsLocked(ctx context.Context, email string) (bool, error)
	RecordFailedLogin(ctx context.Context, email, ip string) (*models.FailedLoginResult, error)
	ClearFailedAttempts(ctx context.Context, email string) error
}

// TwoFactorChecker is the slice of the two-factor service the login guard
// needs to run the optional second-factor challenge.
type TwoFactorChecker interface {
	IsEnabled(ctx context.Context, email string) (bool, error)
	VerifyCode(ctx context.Context, email, code string) (bool, error)
}

// RateLimitedError carries the wait hint for a refused attempt
type RateLimitedError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitedError) Error() string { return e.Message }

func (e *RateLimitedError) Is(target error) bool { return target == models.ErrRateLimited }

// RetryAfterMinutes matches the round-up used in the limiter's message text.
func (e *RateLimitedError) RetryAfterMinutes() int {
	return models.RateLimitDecision{RetryAfter: e.RetryAfter}.RetryAfterMinutes()
}

// Patterns that never appear in legitimate credentials. A match means the
// input is hostile and is rejected before the store sees it.
var dangerousInputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

// LoginService runs the secure-login sequence: rate limit, lockout query,
// input validation, then delegated credential verification. The ordering
// is fixed; each earlier stage short-circuits the later ones.
type LoginService struct {
	store     CredentialStore
	limiter   *RateLimitService
	sessions  *SessionService
	events    EventRecorder
	twoFactor TwoFactorChecker
	tokens    *auth.SessionTokenManager
	timing    *auth.TimingDelay
	logger    *slog.Logger
}

// NewLoginService creates a new LoginService
func NewLoginService(
	store CredentialStore,
	limiter *RateLimitService,
	sessions *SessionService,
	events EventRecorder,
	twoFactor TwoFactorChecker,
	tokens *auth.SessionTokenManager,
	timing *auth.TimingDelay,
	logger *slog.Logger,
) *LoginService {
	return &LoginService{
		store:     store,
		limiter:   limiter,
		sessions:  sessions,
		events:    events,
		twoFactor: twoFactor,
		tokens:    tokens,
		timing:    timing,
		logger:    logger,
	}
}

// LoginResult is returned on a successful or 2FA-pending login
type LoginResult struct {
	Token             string
	Session           *models.Session
	Account           *models.Account
	TwoFactorRequired bool
}

// SecureLogin authenticates an admin. totpCode may be empty; it is only
// consulted when the account has two-factor enabled.
//
// Exactly one security event is recorded per terminal outcome. The
// rate-limited branch's event comes from the limiter itself.
func (s *LoginService) SecureLogin(ctx context.Context, email, password, totpCode, ip, userAgent string) (*LoginResult, error) {
	start := time.Now()
	success := false
	if s.timing != nil {
		defer func() { s.timing.WaitFrom(start, success) }()
	}

	email = strings.ToLower(strings.TrimSpace(email))

	// 1. Sliding-window rate limit keyed by email
	decision := s.limiter.Check(models.ActionLogin, email)
	if !decision.Allowed {
		metrics.LoginOutcomes.WithLabelValues("rate_limited").Inc()
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter, Message: decision.Message}
	}

	// 2. Authoritative lockout query. Lockout and backend failure share
	// one generic message so callers cannot confirm account existence.
	locked, err := s.store.IsLocked(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("lockout query failed", slog.Any("error", err))
		s.recordLoginFailure(email, ip, userAgent, "backend_error")
		return nil, models.ErrCredentialRejected
	}
	if locked {
		s.recordLoginFailure(email, ip, userAgent, "account_locked")
		return nil, models.ErrCredentialRejected
	}

	// 3. Input-shape validation against the denylist
	if containsDangerousInput(email) || containsDangerousInput(password) {
		metrics.LoginOutcomes.WithLabelValues("suspicious_input").Inc()
		s.events.Record(models.SecurityEvent{
			Type:      models.EventSuspiciousInput,
			UserEmail: email,
			Success:   false,
			Details:   "dangerous pattern in credentials",
			ClientIP:  ip,
			UserAgent: userAgent,
		})
		return nil, models.ErrInvalidInput
	}

	// 4. Delegated credential verification
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordLoginFailure(email, ip, userAgent, "invalid_credentials")
			return nil, models.ErrCredentialRejected
		}
		s.logger.Error("account lookup failed", slog.Any("error", err))
		s.recordLoginFailure(email, ip, userAgent, "backend_error")
		return nil, models.ErrCredentialRejected
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		// Server-side counter may lock the account after N failures
		if _, recErr := s.store.RecordFailedLogin(ctx, email, ip); recErr != nil {
			s.logger.Error("failed to record failed login", slog.Any("error", recErr))
		}
		s.recordLoginFailure(email, ip, userAgent, "invalid_credentials")
		return nil, models.ErrCredentialRejected
	}

	// Optional second factor before the privileged session opens
	if s.twoFactor != nil {
		enabled, err := s.twoFactor.IsEnabled(ctx, email)
		if err != nil {
			s.logger.Error("two-factor lookup failed", slog.Any("error", err))
			s.recordLoginFailure(email, ip, userAgent, "backend_error")
			return nil, models.ErrCredentialRejected
		}
		if enabled {
			if totpCode == "" {
				metrics.LoginOutcomes.WithLabelValues("totp_required").Inc()
				s.events.Record(models.SecurityEvent{
					Type:      models.EventTwoFactorFailed,
					UserEmail: email,
					Success:   false,
					Details:   "code_required",
					ClientIP:  ip,
					UserAgent: userAgent,
				})
				return &LoginResult{TwoFactorRequired: true}, models.ErrVerificationFailed
			}

			// On a wrong code VerifyCode records the failure event itself;
			// 2FA failures never feed the password lockout counter. A store
			// or decrypt error never reaches VerifyCode's event, so it is
			// recorded here.
			ok, err := s.twoFactor.VerifyCode(ctx, email, totpCode)
			if err != nil {
				s.logger.Error("two-factor verification failed", slog.Any("error", err))
				metrics.LoginOutcomes.WithLabelValues("totp_rejected").Inc()
				s.recordLoginFailure(email, ip, userAgent, "backend_error")
				return &LoginResult{TwoFactorRequired: true}, models.ErrVerificationFailed
			}
			if !ok {
				metrics.LoginOutcomes.WithLabelValues("totp_rejected").Inc()
				return &LoginResult{TwoFactorRequired: true}, models.ErrVerificationFailed
			}
		}
	}

	// Success: clear throttle state, open the session
	s.limiter.Clear(models.ActionLogin, email)
	if err := s.store.ClearFailedAttempts(ctx, email); err != nil {
		s.logger.Error("failed to clear failed attempts", slog.Any("error", err))
	}

	session := s.sessions.Create(account.ID, account.Email)
	token, err := s.tokens.Generate(session)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		s.sessions.Discard(session.SessionID)
		s.recordLoginFailure(email, ip, userAgent, "internal_error")
		return nil, models.ErrInternalServer
	}

	success = true
	metrics.LoginOutcomes.WithLabelValues("success").Inc()
	s.events.Record(models.SecurityEvent{
		Type:      models.EventLoginSuccess,
		UserEmail: email,
		Success:   true,
		ClientIP:  ip,
		UserAgent: userAgent,
	})
	s.logger.Info("admin logged in",
		slog.String("user_email", pkglogger.SanitizedEmail(email)))

	return &LoginResult{
		Token:   token,
		Session: session,
		Account: account,
	}, nil
}

// Logout ends a session at the user's request
func (s *LoginService) Logout(sessionID string) bool {
	return s.sessions.End(sessionID)
}

func (s *LoginService) recordLoginFailure(email, ip, userAgent, reason string) {
	metrics.LoginOutcomes.WithLabelValues("failed").Inc()
	s.events.Record(models.SecurityEvent{
		Type:      models.EventLoginFailed,
		UserEmail: email,
		Success:   false,
		Details:   reason,
		ClientIP:  ip,
		UserAgent: userAgent,
	})
}

func containsDangerousInput(value string) bool {
	for _, pattern := range dangerousInputPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
