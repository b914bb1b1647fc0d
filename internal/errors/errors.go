package errors

import (
	"errors"
	"fmt"
)

// Common error types for the social server
var (
	// Authentication errors. Every token or credential failure wraps ErrUnauthorized
	// so the transport layer can map the whole family to a single status.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidToken        = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	ErrTokenExpired        = fmt.Errorf("token expired: %w", ErrUnauthorized)
	ErrTokenRevoked        = fmt.Errorf("token revoked: %w", ErrUnauthorized)
	ErrInvalidRefreshToken = fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	ErrRefreshTokenExpired = fmt.Errorf("refresh token expired: %w", ErrUnauthorized)
	ErrUserNotFound        = errors.New("user not found")

	// OAuth errors
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrInvalidState    = fmt.Errorf("invalid oauth state: %w", ErrUnauthorized)

	// Request errors
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Validationf builds a field-level validation error
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
