package fangauth

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email, an inactive
	// tenant or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for tampered, malformed or wrongly typed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned once a token's exp has passed.
	ErrTokenExpired = errors.New("token has expired")
	// ErrSessionExpired is returned by Refresh when the session is revoked or unknown.
	ErrSessionExpired = errors.New("session expired or invalid")
	// ErrWeakPassword is matched by every *WeakPasswordError.
	ErrWeakPassword = errors.New("password does not meet security requirements")
	// ErrUnavailable marks persistence or session backend failures. Retryable.
	ErrUnavailable = errors.New("authentication service temporarily unavailable")

	// ErrTenantNotFound is returned by TenantProvider lookups for absent or inactive tenants.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrAccountExists is returned when registering an email that is already taken.
	ErrAccountExists = errors.New("email address already registered")
	// ErrRegistrationDisabled is returned by Register when AccountConfig disables it.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrRegistrationInvalid is returned by Register for missing required fields.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrInvalidPlan is returned for an unknown subscription plan name.
	ErrInvalidPlan = errors.New("invalid subscription plan")
	// ErrInsufficientPlan is returned when a tenant's plan is below a required tier.
	ErrInsufficientPlan = errors.New("subscription upgrade required")
	// ErrLoginRateLimited is returned while an email or IP is throttled after failed logins.
	ErrLoginRateLimited = errors.New("too many login attempts")
	// ErrInvalidAPIKey is returned by ParseAPIKey for keys outside the bf_ format.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrEngineNotReady is returned when an Engine method runs on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrTenantProviderRequired is returned by Build without a TenantProvider.
	ErrTenantProviderRequired = errors.New("tenant provider required")
)

// WeakPasswordError lists every strength rule a password violated.
type WeakPasswordError struct {
	Errors []string
}

func (e *WeakPasswordError) Error() string {
	if len(e.Errors) == 0 {
		return ErrWeakPassword.Error()
	}
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Errors, "; ")
}

// Unwrap lets errors.Is(err, ErrWeakPassword) match.
func (e *WeakPasswordError) Unwrap() error {
	return ErrWeakPassword
}

// LoginRateLimitedError is returned by Login while throttled. RetryAfter is
// zero when the remaining window could not be read.
type LoginRateLimitedError struct {
	RetryAfter time.Duration
}

func (e *LoginRateLimitedError) Error() string {
	return ErrLoginRateLimited.Error()
}

// Unwrap lets errors.Is(err, ErrLoginRateLimited) match.
func (e *LoginRateLimitedError) Unwrap() error {
	return ErrLoginRateLimited
}

func unavailable(cause error) error {
	if cause == nil {
		return ErrUnavailable
	}
	return errors.Join(ErrUnavailable, cause)
}
