package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/models"
	pkghttp "github.com/hostall/hostguard/pkg/http"
)

// TwoFactorServiceInterface defines the 2FA enrollment operations
type TwoFactorServiceInterface interface {
	Setup(ctx context.Context, email string) (*models.TwoFactorSetup, error)
	VerifyAndEnable(ctx context.Context, email, code string) error
	Disable(ctx context.Context, email string) error
	IsEnabled(ctx context.Context, email string) (bool, error)
}

// TwoFactorHandler handles 2FA enrollment requests
type TwoFactorHandler struct {
	service TwoFactorServiceInterface
}

// NewTwoFactorHandler creates a new TwoFactorHandler
func NewTwoFactorHandler(service TwoFactorServiceInterface) *TwoFactorHandler {
	return &TwoFactorHandler{service: service}
}

// VerifyTwoFactorRequest represents the request body for enrollment verification
type VerifyTwoFactorRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFactorStatusResponse reports whether 2FA is active for the caller
type TwoFactorStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// Setup starts 2FA enrollment for the authenticated admin and returns the
// secret plus a QR code for the authenticator app. 2FA stays disabled until
// the first code is verified.
func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	setup, err := h.service.Setup(r.Context(), claims.Email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to start two-factor setup")
		return
	}

	writeJSON(w, http.StatusOK, setup)
}

// Verify confirms the first authenticator code and activates 2FA
func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req VerifyTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.VerifyAndEnable(r.Context(), claims.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrVerificationFailed):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		case errors.Is(err, models.ErrTwoFactorNotEnabled):
			pkghttp.WriteBadRequest(w, "Two-factor setup has not been started")
		default:
			pkghttp.WriteInternalError(w, "Failed to verify two-factor code")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication enabled"})
}

// Disable turns 2FA off for the authenticated admin
func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.service.Disable(r.Context(), claims.Email); err != nil {
		if errors.Is(err, models.ErrTwoFactorNotEnabled) {
			pkghttp.WriteBadRequest(w, "Two-factor authentication is not enabled")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to disable two-factor authentication")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}

// Status reports whether 2FA is enabled for the authenticated admin
func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	enabled, err := h.service.IsEnabled(r.Context(), claims.Email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to read two-factor status")
		return
	}

	writeJSON(w, http.StatusOK, TwoFactorStatusResponse{Enabled: enabled})
}
