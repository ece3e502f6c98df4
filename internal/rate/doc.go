// Package rate provides the failure-counting limiters used to throttle
// login and MFA enrollment attempts.
//
// # Implementations
//
//   - [Redis]: fixed-window counters (INCR + EXPIRE on first hit) shared
//     across processes. Key layout under the configured prefix:
//     ":l:" login per-identifier, ":li:" login per-IP, ":m:" MFA per-user.
//   - [Local]: in-process token buckets from golang.org/x/time/rate for
//     single-instance deployments and tests.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure (the Engine does).
//   - Be imported outside the authcore module.
package rate
