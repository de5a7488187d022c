package jwt

import "github.com/golang-jwt/jwt/v5"

// TokenType is the value of the "type" claim.
type TokenType string

const (
	// TypeAccess marks short-lived API credentials.
	TypeAccess TokenType = "access"
	// TypeRefresh marks long-lived credentials that only mint access tokens.
	TypeRefresh TokenType = "refresh"
)

// Identity is the tenant identity carried by access and refresh tokens.
type Identity struct {
	CompanyID        int64
	Email            string
	SubscriptionPlan string
}

// Claims is the wire claim set shared by access and refresh tokens.
type Claims struct {
	CompanyID        int64     `json:"company_id"`
	Email            string    `json:"email"`
	SubscriptionPlan string    `json:"subscription_plan,omitempty"`
	Type             TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Identity returns the tenant identity of c.
func (c *Claims) Identity() Identity {
	return Identity{
		CompanyID:        c.CompanyID,
		Email:            c.Email,
		SubscriptionPlan: c.SubscriptionPlan,
	}
}

// AccessClaims is a Claims value whose type was verified as "access".
type AccessClaims struct {
	Claims
}

// RefreshClaims is a Claims value whose type was verified as "refresh".
type RefreshClaims struct {
	Claims
}

// ResetClaims is the claim set of a password reset token.
// Credential fingerprints the password hash current at issue time; the token
// dies as soon as that hash changes.
type ResetClaims struct {
	Email      string `json:"email"`
	Purpose    string `json:"purpose"`
	Credential string `json:"cred"`
	jwt.RegisteredClaims
}
