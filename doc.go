// Package userauth implements the authentication and session subsystem of a
// Redis-backed user microservice: registration, login, token verification,
// logout, and password reset.
//
// Sessions:
//   - The TokenCodec mints and validates signed, time-limited tokens
//     (HS256). Expiry is a soft failure: Verify returns the embedded user id
//     for expired tokens so callers can clear the stale session.
//   - The SessionRegistry owns the single mutable token field on the user
//     record. A new login displaces the previous session (last-login-wins);
//     logout and password reset clear it.
//   - The AuthGate guards protected routes: header extraction, codec
//     verification, subject lookup, registry cross-check, and an optional
//     role allow-list, each failure carrying a distinct machine code over a
//     uniform 403.
//
// Password resets use a second, 30-minute token family mapped in the store
// under a native TTL; the mapping's absence is the expiry signal, and a
// successful reset consumes the mapping and revokes the active session.
package userauth
