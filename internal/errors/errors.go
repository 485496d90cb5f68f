package errors

import (
	"errors"
	"fmt"
)

// Session error taxonomy for the console client
var (
	// Access token errors. Never shown to the end user; they lead to a refresh or a silent logout.
	ErrAuthExpired      = errors.New("access token expired")
	ErrMalformedToken   = errors.New("malformed token")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Refresh errors. ErrRefreshFailed is terminal and the only core error surfaced to the UI.
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshFailed       = errors.New("token refresh failed")

	// Login errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidLoginInput  = errors.New("invalid login input")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

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

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
