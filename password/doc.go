// Package password hashes tenant credentials and scores password strength.
//
// # Output format
//
// Hashes use the legacy BlackFang encoding:
//
//	<hex pbkdf2-hmac-sha256 digest>:<hex salt>
//
// The digest is 32 bytes, derived with 100,000 rounds by default. The salt is
// 32 random bytes rendered as 64 hex characters, and the hex text itself is the
// PBKDF2 salt input.
//
// # Architecture boundaries
//
// This package owns hashing, verification and the five strength rules. Deciding
// when a password must be strong (register, change, reset) is the Engine's job.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials.
//   - Import any other fangauth package.
//   - Log plaintext passwords or digests.
package password
