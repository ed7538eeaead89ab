// Package sso implements a stateless token-based single sign-on bridge.
//
// An external identity application mints short-lived HS256-signed tokens;
// the login endpoint here verifies them and, on success, establishes a local
// authenticated session for a matching local user. No password ever crosses
// the wire.
//
// The verification pipeline is a linear state machine with a single accept
// path and many terminal reject paths:
//
//	eligibility -> enabled -> rate limit -> token presence -> secrets
//	-> signature -> replay burn -> claims -> host binding -> redemption
//	-> subject -> identity -> capability -> path sanitization -> session
//
// Two properties are load-bearing for security and worth calling out:
//
//   - A token's jti is burned in the TTL store the instant its signature
//     verifies, before any claim checks, so repeated probing with the same
//     signed token is impossible even when later checks fail.
//   - Every claim comparison against configured values uses constant-time
//     comparison, closing timing side-channels on configuration values.
package sso
