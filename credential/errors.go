package credential

import "errors"

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Insert when the normalized email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrVersionConflict is returned by Update when the stored record moved on.
	ErrVersionConflict = errors.New("user record version conflict")
	// ErrUnavailable wraps infrastructure failures of a storage engine.
	ErrUnavailable = errors.New("credential store unavailable")

	// ErrMFANotPending is returned when confirming enrollment outside the pending state.
	ErrMFANotPending = errors.New("mfa enrollment not pending")
	// ErrMFAAlreadyEnabled is returned when starting enrollment while MFA is enabled.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
)
