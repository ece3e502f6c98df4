// Package credential defines the user record owned by the credential store,
// the [Store] contract every storage engine implements, and the pure MFA
// enrollment transitions that operate on a record.
//
// # Architecture boundaries
//
// credential is a leaf package. Storage engines live in sub-packages
// (memory, redisstore, postgres) and the authcore Engine consumes them only
// through [Store].
//
// # What this package must NOT do
//
//   - Hash passwords, generate TOTP secrets or verify codes.
//   - Hold raw reset tokens (only their SHA-256 hex digest).
//   - Perform I/O.
package credential
