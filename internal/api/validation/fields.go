package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen       = 128
	maxDescriptionLen = 1024
	maxMessageLen     = 512
	maxNameLen        = 64
	maxEmailLen       = 256
	minPasswordLen    = 6
	maxPasswordLen    = 64
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// requiredText checks a mandatory free-text field.
func requiredText(errs []FieldError, field string, v *string, max int) []FieldError {
	if v == nil {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return optionalText(errs, field, v, max)
}

// optionalText checks a text field only when it was supplied. A supplied
// value may not be blank.
func optionalText(errs []FieldError, field string, v *string, max int) []FieldError {
	if v == nil {
		return errs
	}
	if strings.TrimSpace(*v) == "" {
		return append(errs, FieldError{Field: field, Message: field + " must not be empty"})
	}
	if utf8.RuneCountInString(*v) > max {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)})
	}
	return errs
}

func requiredNonNegative(errs []FieldError, field string, v *int64) []FieldError {
	if v == nil {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return optionalNonNegative(errs, field, v)
}

func optionalNonNegative(errs []FieldError, field string, v *int64) []FieldError {
	if v != nil && *v < 0 {
		return append(errs, FieldError{Field: field, Message: field + " must be a non-negative integer"})
	}
	return errs
}

func requiredID(errs []FieldError, field string, v *int64) []FieldError {
	if v == nil {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return optionalID(errs, field, v)
}

func optionalID(errs []FieldError, field string, v *int64) []FieldError {
	if v != nil && *v <= 0 {
		return append(errs, FieldError{Field: field, Message: field + " must be a positive integer"})
	}
	return errs
}

func emailField(errs []FieldError, field string, v *string, required bool) []FieldError {
	if v == nil {
		if required {
			return append(errs, FieldError{Field: field, Message: field + " is required"})
		}
		return errs
	}
	email := strings.TrimSpace(*v)
	if email == "" || len(email) > maxEmailLen {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be 1-%d characters", field, maxEmailLen)})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return append(errs, FieldError{Field: field, Message: field + " must be a valid email address"})
	}
	return errs
}

func passwordField(errs []FieldError, field string, v *string, required bool) []FieldError {
	if v == nil {
		if required {
			return append(errs, FieldError{Field: field, Message: field + " is required"})
		}
		return errs
	}
	if n := utf8.RuneCountInString(*v); n < minPasswordLen || n > maxPasswordLen {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be %d-%d characters", field, minPasswordLen, maxPasswordLen)})
	}
	return errs
}
