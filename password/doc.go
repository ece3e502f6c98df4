// Package password implements password hashing and verification with Argon2id
// defaults and a bcrypt alternative.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes use the standard modular crypt format ($2a$...).
//
// Both implementations satisfy [Hasher] and support transparent parameter
// upgrades: if the stored hash was produced with weaker parameters,
// NeedsUpgrade returns true so the caller can re-hash on the next successful
// login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length, character rules) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
