// Package common defines shared sentinel errors and small helpers used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Infrastructure failures. The transport layer surfaces these as 5xx;
	// they are kept distinct from business-rule failures.
	ErrorInternal = errors.New("internal error")

	// Business-rule failures surfaced as typed results.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountNotVerified     = errors.New("account not verified")

	// ErrInvalidToken covers every externally visible token failure: unknown
	// value, wrong kind, already used, or expired. The detailed reason is
	// logged and counted internally but never leaks to the caller.
	ErrInvalidToken = errors.New("invalid or expired token")
)
