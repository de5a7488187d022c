// Package config loads the fangauth-server process configuration from the
// environment, an optional .env file and an optional CONFIG_FILE.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/blackfang-intel/fangauth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvDevelopment = "development"

// devSecret signs tokens when ENVIRONMENT=development and JWT_SECRET is unset.
const devSecret = "fangauth-development-secret-do-not-deploy"

var ErrMissingSecret = errors.New("JWT_SECRET is required outside development")

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	RateLimit   RateLimitConfig
	Auth        fangauth.Config
}

type ServerConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

// RateLimitConfig is the per-IP HTTP request budget.
type RateLimitConfig struct {
	Requests int
	Period   time.Duration
}

// Load reads .env (when present) and the environment. A .env file never
// overrides variables already set in the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	def := fangauth.DefaultConfig()

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", int(def.JWT.AccessTTL/time.Minute))
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRE_DAYS", int(def.JWT.RefreshTTL/(24*time.Hour)))
	v.SetDefault("PASSWORD_RESET_EXPIRE_MINUTES", int(def.PasswordReset.ResetTTL/time.Minute))
	v.SetDefault("PASSWORD_RESET_ENABLED", def.PasswordReset.Enabled)
	v.SetDefault("PBKDF2_ITERATIONS", def.Password.Iterations)
	v.SetDefault("MAX_CONCURRENT_HASHES", 0)

	v.SetDefault("REGISTRATION_ENABLED", def.Account.Enabled)
	v.SetDefault("DEFAULT_PLAN", def.Account.DefaultPlan.String())
	v.SetDefault("BASIC_PLAN_PRICE", def.Account.Pricing.Basic)
	v.SetDefault("PROFESSIONAL_PLAN_PRICE", def.Account.Pricing.Professional)
	v.SetDefault("ENTERPRISE_PLAN_PRICE", def.Account.Pricing.Enterprise)

	v.SetDefault("LOGIN_THROTTLE_ENABLED", def.Security.EnableLoginThrottle)
	v.SetDefault("MAX_LOGIN_ATTEMPTS", def.Security.MaxLoginAttempts)
	v.SetDefault("LOGIN_LOCKOUT_MINUTES", int(def.Security.LoginWindow/time.Minute))
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_PERIOD", 60)

	v.SetDefault("DEMO_ACCOUNT_ENABLED", true)
	v.SetDefault("DEMO_EMAIL", def.Demo.Email)
	v.SetDefault("DEMO_PASSWORD", def.Demo.Password)

	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("METRICS_ENABLED", def.Metrics.Enabled)
}

func fromViper(v *viper.Viper) (*Config, error) {
	env := strings.ToLower(v.GetString("ENVIRONMENT"))

	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		if env != EnvDevelopment {
			return nil, ErrMissingSecret
		}
		secret = devSecret
	}

	plan, err := fangauth.ParsePlan(v.GetString("DEFAULT_PLAN"))
	if err != nil {
		return nil, err
	}

	auth := fangauth.DefaultConfig()
	auth.JWT.Secret = []byte(secret)
	auth.JWT.Issuer = v.GetString("JWT_ISSUER")
	auth.JWT.AccessTTL = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute
	auth.JWT.RefreshTTL = time.Duration(v.GetInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS")) * 24 * time.Hour
	auth.PasswordReset.Enabled = v.GetBool("PASSWORD_RESET_ENABLED")
	auth.PasswordReset.ResetTTL = time.Duration(v.GetInt("PASSWORD_RESET_EXPIRE_MINUTES")) * time.Minute
	auth.Password.Iterations = v.GetInt("PBKDF2_ITERATIONS")
	auth.Password.MaxConcurrentHashes = v.GetInt("MAX_CONCURRENT_HASHES")

	auth.Account.Enabled = v.GetBool("REGISTRATION_ENABLED")
	auth.Account.DefaultPlan = plan
	auth.Account.Pricing = fangauth.PlanPricing{
		Basic:        v.GetInt64("BASIC_PLAN_PRICE"),
		Professional: v.GetInt64("PROFESSIONAL_PLAN_PRICE"),
		Enterprise:   v.GetInt64("ENTERPRISE_PLAN_PRICE"),
	}

	auth.Security.EnableLoginThrottle = v.GetBool("LOGIN_THROTTLE_ENABLED")
	auth.Security.MaxLoginAttempts = v.GetInt("MAX_LOGIN_ATTEMPTS")
	auth.Security.LoginWindow = time.Duration(v.GetInt("LOGIN_LOCKOUT_MINUTES")) * time.Minute

	auth.Demo.Enabled = v.GetBool("DEMO_ACCOUNT_ENABLED")
	auth.Demo.Email = fangauth.NormalizeEmail(v.GetString("DEMO_EMAIL"))
	auth.Demo.Password = v.GetString("DEMO_PASSWORD")

	auth.Audit.Enabled = v.GetBool("AUDIT_ENABLED")
	auth.Metrics.Enabled = v.GetBool("METRICS_ENABLED")

	if err := auth.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Environment: env,
		Server: ServerConfig{
			Host:              v.GetString("HOST"),
			Port:              v.GetString("PORT"),
			ShutdownTimeout:   time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
			TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),
		},
		Database:  DatabaseConfig{URL: v.GetString("DATABASE_URL")},
		Redis:     RedisConfig{URL: v.GetString("REDIS_URL")},
		Log:       LogConfig{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Period:   time.Duration(v.GetInt("RATE_LIMIT_PERIOD")) * time.Second,
		},
		Auth: auth,
	}, nil
}
