// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUnauthenticated     = errors.New("invalid or expired access token")
	ErrForbidden           = errors.New("not allowed to access this expense")
	ErrUserNotFound        = errors.New("user not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
