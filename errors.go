package authcore

import "errors"

var (
	// ErrDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrMFARequired is an exported constant or variable used by the authentication engine.
	ErrMFARequired = errors.New("mfa required")
	// ErrInvalidMFACode is an exported constant or variable used by the authentication engine.
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrMFARateLimited is returned when too many wrong enrollment codes were submitted.
	ErrMFARateLimited = errors.New("mfa verification rate limited")
	// ErrMFANotPending is an exported constant or variable used by the authentication engine.
	ErrMFANotPending = errors.New("mfa enrollment not pending")
	// ErrMFAAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrInvalidToken is returned when a password reset token is unknown, expired or already consumed.
	ErrInvalidToken = errors.New("invalid or expired reset token")
	// ErrTokenExpired is returned when a session token is past its expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid is returned when a session token is malformed or forged.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable is returned for credential store infrastructure failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
