package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	pkghttp "github.com/hostall/hostguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to the request context, as
// SessionMiddleware would after validating the bearer token
func WithSessionContext(req *http.Request, sessionID, email string) *http.Request {
	claims := &auth.SessionClaims{
		SessionID: sessionID,
		UserID:    "admin-1",
		Email:     email,
	}
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockLoginService implements LoginServiceInterface for testing
type MockLoginService struct {
	SecureLoginFunc func(ctx context.Context, email, password, totpCode, ip, userAgent string) (*services.LoginResult, error)
	LogoutFunc      func(sessionID string) bool
}

func (m *MockLoginService) SecureLogin(ctx context.Context, email, password, totpCode, ip, userAgent string) (*services.LoginResult, error) {
	if m.SecureLoginFunc == nil {
		return nil, models.ErrCredentialRejected
	}
	return m.SecureLoginFunc(ctx, email, password, totpCode, ip, userAgent)
}

func (m *MockLoginService) Logout(sessionID string) bool {
	if m.LogoutFunc == nil {
		return true
	}
	return m.LogoutFunc(sessionID)
}

// MockTwoFactorService implements TwoFactorServiceInterface for testing
type MockTwoFactorService struct {
	SetupFunc           func(ctx context.Context, email string) (*models.TwoFactorSetup, error)
	VerifyAndEnableFunc func(ctx context.Context, email, code string) error
	DisableFunc         func(ctx context.Context, email string) error
	IsEnabledFunc       func(ctx context.Context, email string) (bool, error)
}

func (m *MockTwoFactorService) Setup(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
	if m.SetupFunc == nil {
		return &models.TwoFactorSetup{Secret: "JBSWY3DPEHPK3PXP"}, nil
	}
	return m.SetupFunc(ctx, email)
}

func (m *MockTwoFactorService) VerifyAndEnable(ctx context.Context, email, code string) error {
	if m.VerifyAndEnableFunc == nil {
		return nil
	}
	return m.VerifyAndEnableFunc(ctx, email, code)
}

func (m *MockTwoFactorService) Disable(ctx context.Context, email string) error {
	if m.DisableFunc == nil {
		return nil
	}
	return m.DisableFunc(ctx, email)
}

func (m *MockTwoFactorService) IsEnabled(ctx context.Context, email string) (bool, error) {
	if m.IsEnabledFunc == nil {
		return false, nil
	}
	return m.IsEnabledFunc(ctx, email)
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestFunc func(ctx context.Context, email, ip string) error
	ConfirmFunc func(ctx context.Context, rawToken, newPassword, ip, userAgent string) error
}

func (m *MockPasswordResetService) Request(ctx context.Context, email, ip string) error {
	if m.RequestFunc == nil {
		return nil
	}
	return m.RequestFunc(ctx, email, ip)
}

func (m *MockPasswordResetService) Confirm(ctx context.Context, rawToken, newPassword, ip, userAgent string) error {
	if m.ConfirmFunc == nil {
		return models.ErrVerificationFailed
	}
	return m.ConfirmFunc(ctx, rawToken, newPassword, ip, userAgent)
}
