package httpapi

import (
	"net/http"

	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"
)

type RouterConfig struct {
	Engine *fangauth.Engine
	Log    zerolog.Logger

	// Registry, when set, receives the HTTP instruments and is served on /metrics.
	Registry *prometheus.Registry

	IPRateLimit func(http.Handler) http.Handler

	ExposeResetToken bool

	// Development relaxes the security headers (no HSTS, no host checks).
	Development bool

	// TrustProxyHeaders rewrites the client IP from X-Forwarded-For / X-Real-IP.
	// Off, the peer address is used, so clients cannot pick the IP that the
	// per-IP limiter and login throttle key on.
	TrustProxyHeaders bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	auth := NewAuthHandler(cfg.Engine, cfg.Log, cfg.ExposeResetToken)
	health := NewHealthHandler(cfg.Engine)
	guard := middleware.Guard(cfg.Engine)

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimid.RealIP)
	}
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	r.Use(secure.New(securityHeaders(cfg.Development)).Handler)
	if cfg.Registry != nil {
		r.Use(newHTTPMetrics(cfg.Registry).middleware)
	}
	r.Use(requestContext)
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	r.Get("/health", health.ServeHTTP)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(chimid.AllowContentType("application/json"))

		r.Post("/login", auth.Login)
		r.Post("/refresh", auth.Refresh)
		r.Post("/register", auth.Register)
		r.Post("/logout", auth.Logout)
		r.Post("/validate-token", auth.ValidateToken)
		r.Post("/password-reset/request", auth.RequestPasswordReset)
		r.Post("/password-reset/confirm", auth.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Get("/me", auth.Me)
			r.Post("/change-password", auth.ChangePassword)
			r.With(middleware.RequirePlan(fangauth.PlanProfessional)).Post("/api-keys", auth.IssueAPIKey)
		})
	})

	return r
}

func securityHeaders(development bool) secure.Options {
	return secure.Options{
		IsDevelopment:         development,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}
}
