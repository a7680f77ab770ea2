package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailUnconfirmed   = errors.New("email is not confirmed")
	ErrDuplicateIdentity  = errors.New("identity already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")

	// ErrReauthenticationRequired means the session may not change credentials without a recent
	// password check or a recovery.
	ErrReauthenticationRequired = errors.New("recent authentication required")
	ErrConfirmationInvalid      = errors.New("confirmation link invalid or expired")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Recovery errors
	ErrRecoveryExpired = errors.New("recovery link expired or already used")

	// Record errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrCompanyNotFound = errors.New("company not found")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
