package fangauth

import (
	"errors"
	"runtime"
	"time"

	"github.com/blackfang-intel/fangauth/jwt"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/session"
)

// Config holds every engine tunable. Treat it as immutable after Build.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	Security      SecurityConfig
	Demo          DemoConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures HS256 token issuance. Secret is required.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
	KeyID      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the Redis session store built when a Redis client
// is supplied. Record TTL follows JWT.RefreshTTL.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures PBKDF2 and the hashing slot pool.
type PasswordConfig struct {
	Iterations int
	SaltBytes  int
	// MaxConcurrentHashes bounds in-flight hash/verify calls. Zero means NumCPU.
	MaxConcurrentHashes int
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// PasswordResetConfig configures reset tokens.
type PasswordResetConfig struct {
	Enabled  bool
	ResetTTL time.Duration
}

// AccountConfig configures self-service registration.
type AccountConfig struct {
	Enabled     bool
	DefaultPlan Plan
	Pricing     PlanPricing
}

// DemoConfig describes the demo tenant seeded by the server binary.
type DemoConfig struct {
	Enabled  bool
	Email    string
	Password string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig configures failed-login throttling. Throttling needs Redis and
// is skipped without it.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginWindow         time.Duration
	RateLimitPrefix     string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. JWT.Secret is left empty.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  jwt.DefaultAccessTTL,
			RefreshTTL: jwt.DefaultRefreshTTL,
		},
		Session: SessionConfig{
			RedisPrefix: session.DefaultPrefix,
		},
		Password: PasswordConfig{
			Iterations:          password.DefaultIterations,
			SaltBytes:           password.DefaultSaltBytes,
			MaxConcurrentHashes: runtime.NumCPU(),
		},
		PasswordReset: PasswordResetConfig{
			Enabled:  true,
			ResetTTL: jwt.DefaultResetTTL,
		},
		Account: AccountConfig{
			Enabled:     true,
			DefaultPlan: PlanProfessional,
			Pricing: PlanPricing{
				Basic:        25000,
				Professional: 45000,
				Enterprise:   75000,
			},
		},
		Security: SecurityConfig{
			EnableLoginThrottle: true,
			EnableIPThrottle:    true,
			MaxLoginAttempts:    5,
			LoginWindow:         15 * time.Minute,
			RateLimitPrefix:     session.DefaultPrefix,
		},
		Demo: DemoConfig{
			Enabled:  false,
			Email:    "demo@blackfangintel.com",
			Password: "demo123",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Password
	if c.Password.Iterations <= 0 {
		return errors.New("Password Iterations must be > 0")
	}
	if c.Password.SaltBytes <= 0 {
		return errors.New("Password SaltBytes must be > 0")
	}
	if c.Password.MaxConcurrentHashes < 0 {
		return errors.New("Password MaxConcurrentHashes must be >= 0")
	}

	// Password reset
	if c.PasswordReset.Enabled && c.PasswordReset.ResetTTL <= 0 {
		return errors.New("PasswordReset ResetTTL must be > 0")
	}

	// Account
	if c.Account.Enabled {
		if c.Account.DefaultPlan.Level() == 0 {
			return errors.New("Account DefaultPlan is not a known plan")
		}
		p := c.Account.Pricing
		if p.Basic < 0 || p.Professional < 0 || p.Enterprise < 0 {
			return errors.New("Account Pricing must be >= 0")
		}
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginWindow <= 0 {
			return errors.New("Security LoginWindow must be > 0")
		}
	}

	// Demo
	if c.Demo.Enabled && (c.Demo.Email == "" || c.Demo.Password == "") {
		return errors.New("Demo requires Email and Password")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
