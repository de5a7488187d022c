package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/internal/config"
	"github.com/blackfang-intel/fangauth/internal/httpapi"
	"github.com/blackfang-intel/fangauth/metrics/export/prometheus"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/tenant"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := config.NewLogger(cfg.Log, os.Stderr)

	ctx := context.Background()

	var tenants fangauth.TenantProvider
	if cfg.Database.URL != "" {
		pg, err := tenant.Open(cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("ping database")
		}
		tenants = pg
	} else {
		log.Warn().Msg("DATABASE_URL not set; using in-memory tenant store")
		tenants = tenant.NewMemoryStore()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("ping redis")
		}
	} else {
		log.Warn().Msg("REDIS_URL not set; sessions are kept in process memory")
	}

	if cfg.Auth.Demo.Enabled {
		seedDemo(ctx, log, tenants, cfg.Auth)
	}

	builder := fangauth.New().
		WithConfig(cfg.Auth).
		WithTenantProvider(tenants).
		WithLogger(log).
		WithAuditSink(fangauth.NewZerologSink(log))
	if redisClient != nil {
		builder = builder.WithRedis(redisClient)
	}
	engine, err := builder.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info().
		Str("session_backend", report.SessionBackend).
		Int("pbkdf2_iterations", report.PBKDF2Iterations).
		Bool("login_throttle", report.LoginThrottleActive).
		Bool("registration_open", report.RegistrationOpen).
		Bool("demo_account", report.DemoAccountEnabled).
		Msg("security posture")
	if report.WeakIterationWarning || report.ShortSecretWarning {
		log.Warn().
			Bool("weak_iterations", report.WeakIterationWarning).
			Bool("short_secret", report.ShortSecretWarning).
			Msg("security settings below recommendation")
	}

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCollector(engine),
	)

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Engine:            engine,
		Log:               log,
		Registry:          reg,
		IPRateLimit:       httpapi.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Period),
		ExposeResetToken:  cfg.Environment == config.EnvDevelopment,
		Development:       cfg.Environment == config.EnvDevelopment,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("environment", cfg.Environment).Msg("fangauth-server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// seedDemo creates the demo tenant when it is missing. Failure is logged, not
// fatal; the demo account is a convenience.
func seedDemo(ctx context.Context, log zerolog.Logger, tenants fangauth.TenantProvider, auth fangauth.Config) {
	hasher, err := password.NewHasher(password.Config{
		Iterations: auth.Password.Iterations,
		SaltBytes:  auth.Password.SaltBytes,
	})
	if err != nil {
		log.Error().Err(err).Msg("demo seed: hasher")
		return
	}
	created, err := tenant.SeedDemo(ctx, tenants, hasher, auth.Demo, auth.Account.Pricing)
	if err != nil {
		log.Error().Err(err).Msg("demo seed failed")
		return
	}
	if created {
		log.Info().Str("email", auth.Demo.Email).Msg("demo tenant created")
	}
}
