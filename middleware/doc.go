// Package middleware adapts authcore session verification to net/http.
//
// [RequireSession] reads the Authorization bearer token, calls
// Engine.VerifyToken and injects the verified claims into the request
// context, retrievable with [ClaimsFromContext]. [ClientIP] forwards the
// caller's address to the engine for per-IP throttling.
//
// The package makes no authentication decisions of its own and never
// touches the credential store.
package middleware
