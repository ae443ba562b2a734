package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hostall/hostguard/internal/models"
)

// SessionClaims are the JWT claims carried by a session token
type SessionClaims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs and validates session tokens. The token only
// names a session; whether that session is still live is decided by the
// session registry on every request.
type SessionTokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewSessionTokenManager creates a new SessionTokenManager
func NewSessionTokenManager(secret string, expiry time.Duration) *SessionTokenManager {
	return &SessionTokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate creates a signed token for a session
func (tm *SessionTokenManager) Generate(session *models.Session) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		Email:     session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.SessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and verifies a session token
func (tm *SessionTokenManager) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
