// Package totp generates and verifies RFC 6238 time-based one-time codes.
//
// Secrets and provisioning URIs are produced with github.com/pquerna/otp;
// verification walks the configured window itself so the caller learns which
// time step matched and can reject replays.
//
// # Architecture boundaries
//
// The engine is stateless. Enrollment state, last-used-step tracking and
// rate limiting live in the Engine that calls it.
//
// # What this package must NOT do
//
//   - Persist secrets or remember accepted codes.
//   - Log secrets or submitted codes.
//   - Read wall-clock time directly; time comes from the injected clock.
package totp
