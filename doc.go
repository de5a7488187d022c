// Package fangauth is the authentication core of the BlackFang Intelligence
// platform: PBKDF2 password credentials, HS256 access and refresh tokens, and
// server-side refresh sessions that can be revoked per tenant.
//
// An [Engine] is assembled once through [Builder.Build] and is then safe for
// concurrent use. Each call runs on the caller's goroutine; the only blocking
// points are the [TenantProvider], the session store and a bounded pool of
// password derivation slots.
//
// # Architecture boundaries
//
// fangauth is the public surface. It exposes [Engine], [Builder], [Config],
// [TenantProvider] and the result value types. Password hashing lives in
// password/, token signing in jwt/, session bookkeeping in session/ and tenant
// persistence in tenant/. Throttling and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Reveal whether an email exists through Login, Logout or IssuePasswordReset.
//   - Return persistence failures as credential failures; they surface as [ErrUnavailable].
//   - Log or audit passwords, tokens or password hashes.
//   - Import internal/httpapi or any package that re-imports fangauth.
package fangauth
