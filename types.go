package fangauth

import (
	"context"
	"strings"
	"time"

	"github.com/blackfang-intel/fangauth/jwt"
)

// TenantRecord is the persisted identity and credential record of a dealership
// account ("company" in the storage schema).
type TenantRecord struct {
	ID               int64
	Name             string
	Email            string
	PasswordHash     string
	CompanyName      string
	Industry         string
	SubscriptionPlan Plan
	MonthlyFee       int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	// LastLogin is nil until the first successful login.
	LastLogin *time.Time
}

// Summary strips credential material from r.
func (r TenantRecord) Summary() TenantSummary {
	return TenantSummary{
		ID:               r.ID,
		Name:             r.Name,
		Email:            r.Email,
		CompanyName:      r.CompanyName,
		Industry:         r.Industry,
		SubscriptionPlan: r.SubscriptionPlan,
		MonthlyFee:       r.MonthlyFee,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		LastLogin:        r.LastLogin,
	}
}

// TenantSummary is the public view of a tenant returned to API callers.
type TenantSummary struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	CompanyName      string    `json:"company_name"`
	Industry         string    `json:"industry,omitempty"`
	SubscriptionPlan Plan      `json:"subscription_plan"`
	MonthlyFee       int64     `json:"monthly_fee"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// CreateTenantInput is the record written by TenantProvider.CreateTenant.
// PasswordHash is already derived; Email is already normalized.
type CreateTenantInput struct {
	Name             string
	Email            string
	PasswordHash     string
	CompanyName      string
	Industry         string
	SubscriptionPlan Plan
	MonthlyFee       int64
}

// TenantProvider is the persistence collaborator of the Engine.
//
// Lookups return ErrTenantNotFound for absent or inactive tenants; CreateTenant
// returns ErrAccountExists for a taken email. Any other error is treated as a
// backend outage and surfaces as ErrUnavailable.
type TenantProvider interface {
	GetTenantByEmail(ctx context.Context, email string) (TenantRecord, error)
	GetTenantByID(ctx context.Context, id int64) (TenantRecord, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64) error
	CreateTenant(ctx context.Context, in CreateTenantInput) (TenantRecord, error)
}

// Pinger is implemented by collaborators that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	Tenant       TenantSummary `json:"user"`
}

// RefreshResult is returned by Engine.Refresh. The refresh token is not rotated.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ValidationResult is the tagged outcome of Engine.ValidateToken.
// Exactly one of Claims and Err is set.
type ValidationResult struct {
	Valid  bool
	Claims *jwt.AccessClaims
	Err    error
}

// RegisterRequest carries a new tenant's details. An empty SubscriptionPlan
// selects AccountConfig.DefaultPlan.
type RegisterRequest struct {
	Name             string
	Email            string
	Password         string
	CompanyName      string
	Industry         string
	SubscriptionPlan string
}

const tokenTypeBearer = "bearer"

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
