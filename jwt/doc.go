// Package jwt issues and verifies self-contained session tokens.
//
// Tokens are signed with HS256 (default) or Ed25519 and carry the user id as
// the subject plus email, name, iat, exp and a random jti. Nothing is
// persisted: expiry is the only way a token stops being valid.
//
// Verification failures collapse to two sentinels, [ErrExpired] and
// [ErrInvalid], so callers never branch on library error text.
package jwt
