// Package auth provides pluggable authentication and rate limiting for
// the skillbridge gateway.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from engine
// logic. The middleware injects the identity and tenant into the request
// context; the engine reads the caller's upstream key from it in
// passthrough mode.
package auth
