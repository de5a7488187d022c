// Package middleware exposes net/http adapters that put fangauth.Engine access
// token validation and plan gating in front of handlers.
//
// # Guards
//
//   - [Guard] validates the bearer access token and stores its claims in the
//     request context.
//   - [RequirePlan] rejects tenants whose subscription plan is below a tier. It
//     must run after Guard.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Token decoding and
// session checks stay in the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or the tenant store.
package middleware
