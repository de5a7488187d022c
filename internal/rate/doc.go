// Package rate implements the Redis-backed failed-login throttle used by the
// fangauth engine.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit of a window. Only failed
// logins increment; a successful login clears both counters. Key layout:
//   - <prefix>:lf:<email>  failed logins per normalized email
//   - <prefix>:lfi:<ip>    failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide whether a login failed (the engine reports outcomes).
//   - Fail closed on Redis errors; callers decide how to degrade.
//   - Be imported outside the fangauth module.
package rate
