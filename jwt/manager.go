package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is the access token lifetime when Config.AccessTTL is zero.
	DefaultAccessTTL = 60 * time.Minute
	// DefaultRefreshTTL is the refresh token lifetime when Config.RefreshTTL is zero.
	DefaultRefreshTTL = 30 * 24 * time.Hour
	// DefaultResetTTL is the password reset token lifetime when Config.ResetTTL is zero.
	DefaultResetTTL = time.Hour

	minSecretBytes = 16
	maxLeeway      = 2 * time.Minute
	resetPurpose   = "password_reset"
)

var (
	// ErrMalformed is returned when the input is not a parseable JWT.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature is returned for tampered tokens or foreign keys and algorithms.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned once now >= exp.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when the type or purpose claim does not match the caller's expectation.
	ErrWrongType = errors.New("token type mismatch")
	// ErrInvalidClaims is returned for structurally valid tokens with unusable claims.
	ErrInvalidClaims = errors.New("token claims invalid")
)

// Config holds the signing secret and token lifetimes.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Issuer     string
	Leeway     time.Duration
	KeyID      string
}

// Manager issues and decodes HS256 tokens with one process-wide secret.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg, fills default lifetimes and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 || cfg.ResetTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg, now: time.Now}, nil
}

// AccessTTL reports the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// IssueAccess signs a short-lived access token for id.
func (j *Manager) IssueAccess(id Identity) (string, error) {
	return j.issue(id, TypeAccess, j.config.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for id.
func (j *Manager) IssueRefresh(id Identity) (string, error) {
	return j.issue(id, TypeRefresh, j.config.RefreshTTL)
}

// IssuePair signs an access and a refresh token from the same identity.
func (j *Manager) IssuePair(id Identity) (access, refresh string, err error) {
	access, err = j.IssueAccess(id)
	if err != nil {
		return "", "", err
	}
	refresh, err = j.IssueRefresh(id)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Decode verifies tokenStr and requires its type claim to equal expected.
func (j *Manager) Decode(tokenStr string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != expected {
		return nil, ErrWrongType
	}
	if err := j.checkExpiry(claims.ExpiresAt); err != nil {
		return nil, err
	}
	if claims.CompanyID <= 0 {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// DecodeAccess decodes tokenStr as an access token.
func (j *Manager) DecodeAccess(tokenStr string) (*AccessClaims, error) {
	c, err := j.Decode(tokenStr, TypeAccess)
	if err != nil {
		return nil, err
	}
	return &AccessClaims{Claims: *c}, nil
}

// DecodeRefresh decodes tokenStr as a refresh token.
func (j *Manager) DecodeRefresh(tokenStr string) (*RefreshClaims, error) {
	c, err := j.Decode(tokenStr, TypeRefresh)
	if err != nil {
		return nil, err
	}
	return &RefreshClaims{Claims: *c}, nil
}

// IssueReset signs a password reset token bound to email and to credential,
// an opaque fingerprint of the tenant's current password hash.
func (j *Manager) IssueReset(email, credential string) (string, error) {
	if email == "" || credential == "" {
		return "", ErrInvalidClaims
	}
	now := j.now().UTC()
	claims := ResetClaims{
		Email:      email,
		Purpose:    resetPurpose,
		Credential: credential,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.ResetTTL)),
			Issuer:    j.config.Issuer,
		},
	}
	return j.sign(claims)
}

// DecodeReset verifies a password reset token. Checking the credential
// fingerprint against the stored hash is the caller's job.
func (j *Manager) DecodeReset(tokenStr string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != resetPurpose {
		return nil, ErrWrongType
	}
	if err := j.checkExpiry(claims.ExpiresAt); err != nil {
		return nil, err
	}
	if claims.Email == "" || claims.Credential == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (j *Manager) issue(id Identity, typ TokenType, ttl time.Duration) (string, error) {
	if id.CompanyID <= 0 {
		return "", ErrInvalidClaims
	}

	now := j.now().UTC()
	claims := Claims{
		CompanyID:        id.CompanyID,
		Email:            id.Email,
		SubscriptionPlan: id.SubscriptionPlan,
		Type:             typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    j.config.Issuer,
		},
	}
	return j.sign(claims)
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.config.Secret)
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims) error {
	if tokenStr == "" {
		return ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.config.Secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !token.Valid {
		return ErrInvalidClaims
	}
	return nil
}

// checkExpiry repeats the expiry test with an inclusive bound: now >= exp is expired.
func (j *Manager) checkExpiry(exp *jwt.NumericDate) error {
	if exp == nil {
		return ErrInvalidClaims
	}
	if !j.now().Add(-j.config.Leeway).Before(exp.Time) {
		return ErrExpired
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Join(ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.Join(ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidId):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrInvalidClaims, err)
	}
}
