package fangauth

import (
	"runtime"

	"github.com/blackfang-intel/fangauth/internal/audit"
	"github.com/blackfang-intel/fangauth/internal/rate"
	"github.com/blackfang-intel/fangauth/jwt"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. It is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	tenants   TenantProvider
	sessions  session.Store
	auditSink AuditSink
	logger    zerolog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables the Redis session store and failed-login throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithTenantProvider(tp TenantProvider) *Builder {
	b.tenants = tp
	return b
}

// WithSessionStore overrides the store Build would otherwise pick.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Session store selection: WithSessionStore, else a Redis store when a client
// was given, else an in-process MemoryStore.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.tenants == nil {
		return nil, ErrTenantProviderRequired
	}

	tm, err := jwt.NewManager(jwt.Config{
		Secret:     cloneBytes(cfg.JWT.Secret),
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		ResetTTL:   cfg.PasswordReset.ResetTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		KeyID:      cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.NewHasher(password.Config{
		Iterations: cfg.Password.Iterations,
		SaltBytes:  cfg.Password.SaltBytes,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.sessions
	backend := "custom"
	switch {
	case store != nil:
	case b.redis != nil:
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.JWT.RefreshTTL)
		backend = "redis"
	default:
		store = session.NewMemoryStore()
		backend = "memory"
	}

	slots := cfg.Password.MaxConcurrentHashes
	if slots == 0 {
		slots = runtime.NumCPU()
	}

	engine := &Engine{
		config:    cfg,
		tenants:   b.tenants,
		sessions:  store,
		backend:   backend,
		tokens:    tm,
		hasher:    ph,
		hashSlots: make(chan struct{}, slots),
		metrics:   NewMetrics(cfg.Metrics),
		log:       b.logger.With().Str("component", "fangauth").Logger(),
	}

	if b.redis != nil && cfg.Security.EnableLoginThrottle {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Security.RateLimitPrefix,
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			Window:           cfg.Security.LoginWindow,
		})
	}

	// Unknown-email logins verify against this hash so they cost the same as a
	// wrong password.
	dummy, err := ph.Hash("fangauth-unknown-account")
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
