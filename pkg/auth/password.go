package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	// Generic message to users; specific requirements stay internal
	return "invalid password"
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":    true,
	"12345678":    true,
	"qwerty":      true,
	"abc123":      true,
	"password123": true,
	"123456":      true,
	"admin":       true,
	"letmein":     true,
	"welcome":     true,
	"hostall":     true,
	"hostel123":   true,
	"trustno1":    true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces strong password requirements
func ValidatePassword(password string) error {
	errors := make([]string, 0)

	if len(password) < MinPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		errors = append(errors, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errors = append(errors, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errors = append(errors, "must contain at least one digit")
	}

	if commonPasswords[strings.ToLower(password)] {
		errors = append(errors, "is too common")
	}

	if len(errors) > 0 {
		return &PasswordValidationError{Errors: errors}
	}

	return nil
}
