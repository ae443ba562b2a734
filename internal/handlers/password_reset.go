package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	pkgauth "github.com/hostall/hostguard/pkg/auth"
	pkghttp "github.com/hostall/hostguard/pkg/http"
)

// PasswordResetServiceInterface defines the reset flow operations
type PasswordResetServiceInterface interface {
	Request(ctx context.Context, email, ip string) error
	Confirm(ctx context.Context, rawToken, newPassword, ip, userAgent string) error
}

// PasswordResetHandler handles password reset requests
type PasswordResetHandler struct {
	service  PasswordResetServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(service PasswordResetServiceInterface, ipConfig *pkghttp.IPConfig) *PasswordResetHandler {
	return &PasswordResetHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// RequestResetRequest represents the request body for a reset request
type RequestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmResetRequest represents the request body for confirming a reset
type ConfirmResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Request starts a password reset. The response is identical whether or not
// the email has an account; only the rate-limited case differs.
func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.Request(r.Context(), req.Email, ipAddress); err != nil {
		var rle *services.RateLimitedError
		if errors.As(err, &rle) {
			pkghttp.WriteRateLimited(w, rle.Message, rle.RetryAfterMinutes())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the email is registered, a reset link has been sent.",
	})
}

// Confirm applies a new password using a reset token
func (h *PasswordResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.service.Confirm(r.Context(), req.Token, req.NewPassword, ipAddress, userAgent); err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrVerificationFailed):
			pkghttp.WriteUnauthorized(w, "Reset link is invalid or has expired")
		case errors.As(err, &pve):
			pkghttp.WriteBadRequest(w, pve.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
