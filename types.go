package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/jwt"
)

// RegisterRequest carries the fields required to create an account. Name and
// Email are trimmed; Password is used exactly as given.
type RegisterRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// LoginRequest carries login credentials. MFACode is required only when the
// account has MFA enabled.
type LoginRequest struct {
	Email    string
	Password string
	MFACode  string
}

// AuthResult is returned by [Engine.Register] and [Engine.Login]. It never
// contains the password hash or MFA secrets.
type AuthResult struct {
	UserID     string
	Name       string
	Email      string
	MFAEnabled bool
	Token      string
	ExpiresAt  time.Time
}

// MFASetupResult carries the freshly generated pending secret and its
// otpauth:// provisioning URI. It is returned once and never persisted in
// this form by the engine.
type MFASetupResult struct {
	Secret string
	URI    string
}

// UserInfo is the public view of a stored account.
type UserInfo struct {
	ID        string
	Name      string
	Email     string
	MFAState  credential.MFAState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Claims is the verified session token payload.
type Claims = jwt.Claims

// Notifier delivers password reset tokens out of band (e-mail, message bus).
// The token passed to SendPasswordReset is the only copy of the raw value.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
