package services

import (
	"context"
	"time"

	"github.com/hostall/hostguard/internal/models"
)

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	GetByEmailFunc          func(ctx context.Context, email string) (*models.Account, error)
	IsLockedFunc            func(ctx context.Context, email string) (bool, error)
	RecordFailedLoginFunc   func(ctx context.Context, email, ip string) (*models.FailedLoginResult, error)
	ClearFailedAttemptsFunc func(ctx context.Context, email string) error
}

func (m *MockCredentialStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockCredentialStore) IsLocked(ctx context.Context, email string) (bool, error) {
	if m.IsLockedFunc != nil {
		return m.IsLockedFunc(ctx, email)
	}
	return false, nil
}

func (m *MockCredentialStore) RecordFailedLogin(ctx context.Context, email, ip string) (*models.FailedLoginResult, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, email, ip)
	}
	return &models.FailedLoginResult{}, nil
}

func (m *MockCredentialStore) ClearFailedAttempts(ctx context.Context, email string) error {
	if m.ClearFailedAttemptsFunc != nil {
		return m.ClearFailedAttemptsFunc(ctx, email)
	}
	return nil
}

// MockTwoFactorChecker implements TwoFactorChecker for testing
type MockTwoFactorChecker struct {
	IsEnabledFunc  func(ctx context.Context, email string) (bool, error)
	VerifyCodeFunc func(ctx context.Context, email, code string) (bool, error)
}

func (m *MockTwoFactorChecker) IsEnabled(ctx context.Context, email string) (bool, error) {
	if m.IsEnabledFunc != nil {
		return m.IsEnabledFunc(ctx, email)
	}
	return false, nil
}

func (m *MockTwoFactorChecker) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	if m.VerifyCodeFunc != nil {
		return m.VerifyCodeFunc(ctx, email, code)
	}
	return false, nil
}

// MockTwoFactorStore implements TwoFactorStore for testing
type MockTwoFactorStore struct {
	settings map[string]*models.TwoFactorSettings
}

func NewMockTwoFactorStore() *MockTwoFactorStore {
	return &MockTwoFactorStore{settings: make(map[string]*models.TwoFactorSettings)}
}

func (m *MockTwoFactorStore) Upsert(ctx context.Context, settings *models.TwoFactorSettings) error {
	s := *settings
	m.settings[settings.Email] = &s
	return nil
}

func (m *MockTwoFactorStore) GetByEmail(ctx context.Context, email string) (*models.TwoFactorSettings, error) {
	settings, ok := m.settings[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	s := *settings
	return &s, nil
}

func (m *MockTwoFactorStore) Delete(ctx context.Context, email string) error {
	delete(m.settings, email)
	return nil
}

// MockResetTokenStore implements ResetTokenStore for testing
type MockResetTokenStore struct {
	CreateFunc         func(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByTokenHashFunc func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ConsumeFunc        func(ctx context.Context, id, email, passwordHash string) error
}

func (m *MockResetTokenStore) Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, email, tokenHash, expiresAt)
	}
	return &models.PasswordResetToken{ID: "token-id", Email: email, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
}

func (m *MockResetTokenStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockResetTokenStore) Consume(ctx context.Context, id, email, passwordHash string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id, email, passwordHash)
	}
	return nil
}

// MockPasswordStore implements PasswordStore for testing
type MockPasswordStore struct {
	GetByEmailFunc          func(ctx context.Context, email string) (*models.Account, error)
	ClearFailedAttemptsFunc func(ctx context.Context, email string) error
}

func (m *MockPasswordStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordStore) ClearFailedAttempts(ctx context.Context, email string) error {
	if m.ClearFailedAttemptsFunc != nil {
		return m.ClearFailedAttemptsFunc(ctx, email)
	}
	return nil
}

// MockMirror implements SecurityEventMirror for testing
type MockMirror struct {
	AppendFunc func(ctx context.Context, event *models.SecurityEvent) error
}

func (m *MockMirror) Append(ctx context.Context, event *models.SecurityEvent) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, event)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendSecurityAlertFunc      func(ctx context.Context, subject, body string) error
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendSecurityAlert(ctx context.Context, subject, body string) error {
	if m.SendSecurityAlertFunc != nil {
		return m.SendSecurityAlertFunc(ctx, subject, body)
	}
	return nil
}
