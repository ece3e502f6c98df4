package credential

import (
	"strings"
	"time"
)

// User is the identity record exclusively owned by a [Store].
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string

	MFA MFAEnrollment

	// ResetTokenHash is the hex SHA-256 digest of the outstanding reset
	// token, empty when no reset is in flight.
	ResetTokenHash string
	ResetExpiresAt time.Time

	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAEnabled reports whether login requires a second factor.
func (u *User) MFAEnabled() bool {
	return u != nil && u.MFA.State == MFAEnabled
}

// HasResetToken reports whether a reset token is outstanding at now.
func (u *User) HasResetToken(now time.Time) bool {
	if u == nil || u.ResetTokenHash == "" {
		return false
	}
	return now.Before(u.ResetExpiresAt)
}

// ClearResetToken drops any outstanding reset token.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetExpiresAt = time.Time{}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// NormalizeEmail returns the uniqueness key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
