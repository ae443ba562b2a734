package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance, reused across all handlers
var validate = validator.New()

// ValidateRequest validates a request struct using go-playground/validator
// and returns a user-friendly error for the first failing field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
