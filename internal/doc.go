// Package internal contains helpers that are private to fangauth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: process configuration from environment, .env and config file
//   - httpapi: chi router and JSON handlers over the Engine
//   - rate: Redis-backed failed-login throttle
//   - security: security posture report logged at startup
//
// # What this package must NOT do
//
//   - Export types that appear in the public fangauth API.
//   - Be imported by any package outside the fangauth module.
package internal
