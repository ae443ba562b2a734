package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	pkgauth "github.com/hostall/hostguard/pkg/auth"
	pkghttp "github.com/hostall/hostguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestPasswordResetRequest_SameResponseForAnyEmail(t *testing.T) {
	known := &MockPasswordResetService{
		RequestFunc: func(ctx context.Context, email, ip string) error { return nil },
	}
	handler := NewPasswordResetHandler(known, &pkghttp.IPConfig{})

	first := httptest.NewRecorder()
	handler.Request(first, NewTestRequest(t, "POST", "/auth/password-reset/request",
		RequestResetRequest{Email: "admin@hostall.com"}))

	second := httptest.NewRecorder()
	handler.Request(second, NewTestRequest(t, "POST", "/auth/password-reset/request",
		RequestResetRequest{Email: "stranger@example.com"}))

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestPasswordResetRequest_RateLimited(t *testing.T) {
	mock := &MockPasswordResetService{
		RequestFunc: func(ctx context.Context, email, ip string) error {
			return &services.RateLimitedError{
				RetryAfter: 59*time.Minute + 30*time.Second,
				Message:    "Too many reset requests. Try again in 60 minutes.",
			}
		},
	}
	handler := NewPasswordResetHandler(mock, &pkghttp.IPConfig{})

	w := httptest.NewRecorder()
	handler.Request(w, NewTestRequest(t, "POST", "/auth/password-reset/request",
		RequestResetRequest{Email: "admin@hostall.com"}))

	var resp pkghttp.ErrorResponse
	AssertJSONResponse(t, w, http.StatusTooManyRequests, &resp)
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.Equal(t, 60, resp.RetryAfter)
}

func TestPasswordResetRequest_ValidatesEmail(t *testing.T) {
	handler := NewPasswordResetHandler(&MockPasswordResetService{}, &pkghttp.IPConfig{})

	w := httptest.NewRecorder()
	handler.Request(w, NewTestRequest(t, "POST", "/auth/password-reset/request",
		RequestResetRequest{Email: "not-an-email"}))

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestPasswordResetConfirm_Success(t *testing.T) {
	var gotToken, gotPassword string
	mock := &MockPasswordResetService{
		ConfirmFunc: func(ctx context.Context, rawToken, newPassword, ip, userAgent string) error {
			gotToken = rawToken
			gotPassword = newPassword
			return nil
		},
	}
	handler := NewPasswordResetHandler(mock, &pkghttp.IPConfig{})

	w := httptest.NewRecorder()
	handler.Confirm(w, NewTestRequest(t, "POST", "/auth/password-reset/confirm",
		ConfirmResetRequest{Token: "raw-token", NewPassword: "BrandNewPass7"}))

	AssertJSONResponse(t, w, http.StatusOK, nil)
	assert.Equal(t, "raw-token", gotToken)
	assert.Equal(t, "BrandNewPass7", gotPassword)
}

func TestPasswordResetConfirm_InvalidToken(t *testing.T) {
	mock := &MockPasswordResetService{
		ConfirmFunc: func(ctx context.Context, rawToken, newPassword, ip, userAgent string) error {
			return models.ErrVerificationFailed
		},
	}
	handler := NewPasswordResetHandler(mock, &pkghttp.IPConfig{})

	w := httptest.NewRecorder()
	handler.Confirm(w, NewTestRequest(t, "POST", "/auth/password-reset/confirm",
		ConfirmResetRequest{Token: "expired", NewPassword: "BrandNewPass7"}))

	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")

	var resp pkghttp.ErrorResponse
	AssertJSONResponse(t, w, http.StatusUnauthorized, &resp)
	assert.Equal(t, "Reset link is invalid or has expired", resp.Message)
}

func TestPasswordResetConfirm_WeakPassword(t *testing.T) {
	mock := &MockPasswordResetService{
		ConfirmFunc: func(ctx context.Context, rawToken, newPassword, ip, userAgent string) error {
			return &pkgauth.PasswordValidationError{Errors: []string{"must be at least 8 characters"}}
		},
	}
	handler := NewPasswordResetHandler(mock, &pkghttp.IPConfig{})

	w := httptest.NewRecorder()
	handler.Confirm(w, NewTestRequest(t, "POST", "/auth/password-reset/confirm",
		ConfirmResetRequest{Token: "raw-token", NewPassword: "weak"}))

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}
