// Package session tracks refresh-token sessions and their revocation state.
//
// A session is keyed by the refresh token it was created for and records the
// owning tenant, the creation time and an active flag. Revocation flips the flag
// and never deletes the record, so callers can tell "revoked" from "never issued".
//
// # Backends
//
// [MemoryStore] is a mutex-guarded map owned by one process; records are lost on
// restart. [RedisStore] keeps records under sha256(token) keys with a per-tenant
// index set and expires them with the refresh lifetime. Revocation runs a
// single-key Lua script per session. No command spans two keys, so the store
// runs unchanged on Redis Cluster.
//
// # Binary encoding
//
// Redis values use a fixed 18-byte layout:
//
//	[version:1][tenant_id:8 BE][created_at_ms:8 BE][active:1]
//
// # What this package must NOT do
//
//   - Import fangauth or jwt (no upward imports).
//   - Decode tokens or decide whether a session may be refreshed.
//   - Persist raw refresh tokens in Redis.
package session
