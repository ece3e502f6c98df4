// Package authcore provides an authentication and credential-lifecycle core:
// registration, password login with optional TOTP second factor, stateless
// session tokens, MFA enrollment and one-time password reset.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (AuthResult, MFASetupResult, MetricsSnapshot, ...). Storage is
// pluggable behind [credential.Store]; password hashing, TOTP and token
// signing live in the password, totp and jwt packages. Audit dispatch,
// metrics storage and rate limiting live under internal/ and are never
// exported.
//
// # Concurrency
//
// Every state change is read-transition-compare-and-swap against the stored
// record version, retried a bounded number of times. Two concurrent MFA
// confirmations or reset-token redemptions cannot both succeed.
//
// # What this package must NOT do
//
//   - Log or return plaintext passwords, raw reset tokens or MFA secrets
//     (the one exception is the setup result handed to the enrolling user).
//   - Report a store outage as invalid credentials.
//   - Import any sub-package that re-imports authcore (no import cycles).
package authcore
