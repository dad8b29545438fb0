// Package common defines shared constants and sentinel errors used across
// client and server layers of clientkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrorTransaction marks a write that failed at one of its steps and was
	// rolled back. Its message carries the operation, the step and the cause.
	ErrorTransaction = errors.New("transaction failed")

	// ErrorUnauthorized is returned for any credential mismatch. It never says
	// which part of the credentials was wrong.
	ErrorUnauthorized = errors.New("invalid email or password")
	ErrorNotConfirmed = errors.New("account is not confirmed")

	// Token validation errors, in the order they are checked.
	ErrMissingToken    = errors.New("authorization token is missing")
	ErrMalformedHeader = errors.New(`authorization header must start with "Bearer "`)
	ErrInvalidToken    = errors.New("authorization token is invalid")
	ErrTokenExpired    = errors.New("authorization token has expired")
)
