package password

import "errors"

// DefaultMaxPasswordBytes caps plaintext length when Config leaves it zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by Hash for a zero-length plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when plaintext exceeds the configured cap.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrInvalidHash is returned for encoded hashes the hasher cannot parse.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Hasher defines a public type used by authcore APIs.
//
// Implementations must be safe for concurrent use, compare digests in
// constant time, and never return or log the plaintext.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
)
