package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const resetSecretSize = 32

// ErrMalformedResetToken is returned for tokens that cannot have been issued.
var ErrMalformedResetToken = errors.New("malformed reset token")

// NewResetToken returns a random base64url token and the hex SHA-256 digest
// that is stored in its place.
func NewResetToken() (token string, digest string, err error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(secret[:])
	return token, hashResetSecret(secret[:]), nil
}

// HashResetToken decodes token and returns its storage digest.
func HashResetToken(token string) (string, error) {
	raw, err := decodeResetToken(token)
	if err != nil {
		return "", err
	}
	return hashResetSecret(raw), nil
}

func decodeResetToken(token string) ([]byte, error) {
	if len(token) != base64.RawURLEncoding.EncodedLen(resetSecretSize) {
		return nil, ErrMalformedResetToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != resetSecretSize {
		return nil, ErrMalformedResetToken
	}
	return raw, nil
}

func hashResetSecret(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}
