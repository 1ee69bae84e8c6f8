package errors

import (
	"errors"
	"fmt"
)

// Common error types for the console client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")

	// Token errors
	ErrNoSession           = errors.New("no stored session")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshFailed       = errors.New("token refresh failed")

	// Clinic errors
	ErrNoActiveClinic = errors.New("no active clinic selected")
	ErrClinicNotFound = errors.New("clinic not found")

	// Invitation errors
	ErrInvitationUsed    = errors.New("invitation already used")
	ErrInvalidInvitation = errors.New("invalid invitation token")

	// Authorization errors
	ErrForbidden = errors.New("insufficient role for this action")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
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
