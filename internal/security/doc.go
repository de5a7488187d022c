// Package security builds the loggable security posture report of an engine.
//
// # What this package must NOT do
//
//   - Carry key material or password hashes.
//   - Perform I/O.
package security
