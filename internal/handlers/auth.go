package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	pkghttp "github.com/hostall/hostguard/pkg/http"
)

// LoginServiceInterface defines the login guard operations the handler uses
type LoginServiceInterface interface {
	SecureLogin(ctx context.Context, email, password, totpCode, ip, userAgent string) (*services.LoginResult, error)
	Logout(sessionID string) bool
}

// AuthHandler handles login and logout requests
type AuthHandler struct {
	service  LoginServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty" validate:"omitempty,len=6,numeric"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	StartTime time.Time `json:"start_time"`
}

// TwoFactorRequiredResponse tells the client to retry with a code
type TwoFactorRequiredResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	Message           string `json:"message"`
}

// Login handles admin login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

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
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.SecureLogin(r.Context(), req.Email, req.Password, req.TOTPCode, ipAddress, userAgent)
	if err != nil {
		var rle *services.RateLimitedError
		switch {
		case errors.As(err, &rle):
			pkghttp.WriteRateLimited(w, rle.Message, rle.RetryAfterMinutes())
		case errors.Is(err, models.ErrVerificationFailed):
			if result != nil && result.TwoFactorRequired {
				writeJSON(w, http.StatusUnauthorized, TwoFactorRequiredResponse{
					TwoFactorRequired: true,
					Message:           "A two-factor code is required for this account",
				})
				return
			}
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrCredentialRejected):
			// Generic wording for bad credentials AND locked accounts to
			// prevent account enumeration
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrInvalidInput):
			pkghttp.WriteBadRequest(w, "Invalid input")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		SessionID: result.Session.SessionID,
		Email:     result.Account.Email,
		Name:      result.Account.Name,
		Role:      result.Account.Role,
		StartTime: result.Session.StartTime,
	})
}

// Logout ends the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	h.service.Logout(claims.SessionID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
