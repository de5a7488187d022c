package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned by Validate when no record exists for a token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps every Redis transport or script failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidTenant is returned for non-positive tenant ids.
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrEmptyToken is returned when a session operation receives an empty token.
	ErrEmptyToken = errors.New("empty refresh token")
)

// Record is the server-side state of one refresh token.
type Record struct {
	TenantID  int64
	CreatedAt time.Time
	Active    bool
}

// Store is the session bookkeeping contract consumed by the engine.
//
// Validate returns the record whatever its Active flag; callers check Active.
// Revoke of an unknown token and RevokeAll of a tenant without sessions are no-ops.
type Store interface {
	Create(ctx context.Context, tenantID int64, refreshToken string) error
	Validate(ctx context.Context, refreshToken string) (Record, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, tenantID int64) error
	Ping(ctx context.Context) error
}
