// Package tenant provides the fangauth.TenantProvider implementations: a
// Postgres store over database/sql with the pgx driver, and an in-process
// store for tests and database-less development.
//
// # Schema
//
// Tenants live in the companies table (see Schema). Lookups only return rows
// with is_active = TRUE; an inactive tenant is indistinguishable from an absent
// one.
//
// # What this package must NOT do
//
//   - Hash or verify passwords; it stores hashes produced by the engine.
//   - Own the *sql.DB passed to NewPostgresStore; Close is the caller's job
//     unless the store was created by Open.
package tenant
