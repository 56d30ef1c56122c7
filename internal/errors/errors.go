package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront session layer
var (
	// Credential errors
	ErrAuthFailure          = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrProfileFetchFailed   = errors.New("profile fetch failed")
	ErrPasswordsDontMatch   = errors.New("passwords do not match")
	ErrWeakPassword         = errors.New("password must be at least 8 characters and contain letters and numbers")
	ErrSessionMissing       = errors.New("no active session")
	ErrSessionExpired       = errors.New("session expired")
	ErrNoRefreshToken       = errors.New("session has no refresh token")
	ErrCredentialStoreWrite = errors.New("credential store write failed")

	// Request outcome errors
	ErrValidation = errors.New("validation failed")
	ErrTransport  = errors.New("transport failure")

	// Decoding errors
	ErrDecode            = errors.New("malformed token")
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
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

// New is errors.New, re-exported so callers only import this package
func New(text string) error {
	return errors.New(text)
}
