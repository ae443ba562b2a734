package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hostall/hostguard/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTwoFactorSetup_ReturnsEnrollmentMaterial(t *testing.T) {
	mock := &MockTwoFactorService{
		SetupFunc: func(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
			assert.Equal(t, "admin@hostall.com", email)
			return &models.TwoFactorSetup{
				Secret:        "JBSWY3DPEHPK3PXP",
				OtpauthURL:    "otpauth://totp/HostAll:admin@hostall.com?secret=JBSWY3DPEHPK3PXP",
				QRCodeDataURL: "data:image/png;base64,abc",
			}, nil
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "POST", "/auth/2fa/setup", nil)
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Setup(w, req)

	var resp models.TwoFactorSetup
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", resp.Secret)
	assert.Contains(t, resp.OtpauthURL, "otpauth://totp/")
	assert.NotEmpty(t, resp.QRCodeDataURL)
}

func TestTwoFactorSetup_RequiresSession(t *testing.T) {
	handler := NewTwoFactorHandler(&MockTwoFactorService{})

	req := NewTestRequest(t, "POST", "/auth/2fa/setup", nil)
	w := httptest.NewRecorder()
	handler.Setup(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestTwoFactorVerify_EnablesOnValidCode(t *testing.T) {
	var gotCode string
	mock := &MockTwoFactorService{
		VerifyAndEnableFunc: func(ctx context.Context, email, code string) error {
			gotCode = code
			return nil
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "POST", "/auth/2fa/verify", VerifyTwoFactorRequest{Code: "123456"})
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Verify(w, req)

	AssertJSONResponse(t, w, http.StatusOK, nil)
	assert.Equal(t, "123456", gotCode)
}

func TestTwoFactorVerify_RejectsWrongCode(t *testing.T) {
	mock := &MockTwoFactorService{
		VerifyAndEnableFunc: func(ctx context.Context, email, code string) error {
			return models.ErrVerificationFailed
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "POST", "/auth/2fa/verify", VerifyTwoFactorRequest{Code: "000000"})
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Verify(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestTwoFactorVerify_RequiresSetupFirst(t *testing.T) {
	mock := &MockTwoFactorService{
		VerifyAndEnableFunc: func(ctx context.Context, email, code string) error {
			return models.ErrTwoFactorNotEnabled
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "POST", "/auth/2fa/verify", VerifyTwoFactorRequest{Code: "123456"})
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Verify(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestTwoFactorVerify_ValidatesCodeFormat(t *testing.T) {
	handler := NewTwoFactorHandler(&MockTwoFactorService{})

	req := NewTestRequest(t, "POST", "/auth/2fa/verify", VerifyTwoFactorRequest{Code: "12ab"})
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Verify(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestTwoFactorDisable_RemovesEnrollment(t *testing.T) {
	called := false
	mock := &MockTwoFactorService{
		DisableFunc: func(ctx context.Context, email string) error {
			called = true
			return nil
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "DELETE", "/auth/2fa", nil)
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Disable(w, req)

	AssertJSONResponse(t, w, http.StatusOK, nil)
	assert.True(t, called)
}

func TestTwoFactorDisable_WhenNotEnabled(t *testing.T) {
	mock := &MockTwoFactorService{
		DisableFunc: func(ctx context.Context, email string) error {
			return models.ErrTwoFactorNotEnabled
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "DELETE", "/auth/2fa", nil)
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Disable(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestTwoFactorStatus_ReportsEnabled(t *testing.T) {
	mock := &MockTwoFactorService{
		IsEnabledFunc: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}
	handler := NewTwoFactorHandler(mock)

	req := NewTestRequest(t, "GET", "/auth/2fa/status", nil)
	req = WithSessionContext(req, "sess-1", "admin@hostall.com")
	w := httptest.NewRecorder()
	handler.Status(w, req)

	var resp TwoFactorStatusResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Enabled)
}
