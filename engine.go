package fangauth

import (
	"context"
	"errors"
	"time"

	"github.com/blackfang-intel/fangauth/internal/audit"
	"github.com/blackfang-intel/fangauth/internal/rate"
	"github.com/blackfang-intel/fangauth/jwt"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/session"
	"github.com/rs/zerolog"
)

// Engine is the authentication gateway: it composes the password hasher, the
// token manager and the session store into login, refresh, logout, password
// change and token validation.
//
// Engine is safe for concurrent use once built.
type Engine struct {
	config    Config
	tenants   TenantProvider
	sessions  session.Store
	backend   string
	tokens    *jwt.Manager
	hasher    *password.Hasher
	hashSlots chan struct{}
	dummyHash string
	limiter   *rate.Limiter
	audit     *audit.Dispatcher
	metrics   *Metrics
	log       zerolog.Logger
}

// Close flushes buffered audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the tenant provider (when it implements Pinger) and the session store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	var errs []error
	if p, ok := e.tenants.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.sessions.Ping(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return unavailable(errors.Join(errs...))
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates email and password and opens a new session.
//
// Unknown email, inactive tenant and wrong password all fail with
// ErrInvalidCredentials. Earlier sessions of the tenant stay active.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}()

	email = NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, ErrLoginRateLimited, nil)
				wait, werr := e.limiter.RetryAfter(ctx, email, ip)
				if werr != nil {
					e.log.Warn().Err(werr).Msg("login throttle retry-after lookup failed")
				}
				return nil, &LoginRateLimitedError{RetryAfter: wait}
			}
			e.log.Warn().Err(err).Msg("login throttle check failed")
		}
	}

	tenant, err := e.tenants.GetTenantByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrTenantNotFound) {
			return nil, e.loginUnavailable(ctx, err)
		}
		// burn the same work as a real verify
		if _, err := e.verifyPassword(ctx, pw, e.dummyHash); err != nil {
			return nil, err
		}
		return nil, e.loginFailed(ctx, email, ip, 0, "unknown_email")
	}
	if !tenant.IsActive {
		if _, err := e.verifyPassword(ctx, pw, e.dummyHash); err != nil {
			return nil, err
		}
		return nil, e.loginFailed(ctx, email, ip, tenant.ID, "inactive")
	}

	ok, err := e.verifyPassword(ctx, pw, tenant.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.loginFailed(ctx, email, ip, tenant.ID, "password")
	}

	access, refresh, err := e.tokens.IssuePair(jwt.Identity{
		CompanyID:        tenant.ID,
		Email:            tenant.Email,
		SubscriptionPlan: tenant.SubscriptionPlan.String(),
	})
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, tenant.ID, err, nil)
		return nil, err
	}

	if err := e.sessions.Create(ctx, tenant.ID, refresh); err != nil {
		return nil, e.loginUnavailable(ctx, err)
	}
	e.metricInc(MetricSessionCreated)

	if err := e.tenants.TouchLastLogin(ctx, tenant.ID); err != nil {
		e.log.Warn().Err(err).Int64("tenant_id", tenant.ID).Msg("touch last login failed")
	}
	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
			e.log.Warn().Err(err).Msg("login throttle reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, tenant.ID, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(e.tokens.AccessTTL().Seconds()),
		Tenant:       tenant.Summary(),
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip string, tenantID int64, reason string) error {
	e.metricInc(MetricLoginFailure)
	if e.limiter != nil {
		if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.log.Warn().Err(err).Msg("login throttle increment failed")
		}
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, tenantID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginUnavailable(ctx context.Context, cause error) error {
	err := unavailable(cause)
	e.metricInc(MetricBackendUnavailable)
	e.log.Error().Err(cause).Msg("login backend failure")
	e.emitAudit(ctx, auditEventLoginFailure, false, 0, err, nil)
	return err
}

/*
====================================
REFRESH
====================================
*/

// Refresh issues a new access token for an active session. The refresh token
// itself is not rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		out := ErrInvalidToken
		if errors.Is(err, jwt.ErrExpired) {
			out = errors.Join(ErrInvalidToken, ErrTokenExpired)
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, 0, out, nil)
		return nil, out
	}

	rec, err := e.sessions.Validate(ctx, refreshToken)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, e.refreshExpired(ctx, claims.CompanyID)
	case err != nil:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricBackendUnavailable)
		out := unavailable(err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.CompanyID, out, nil)
		return nil, out
	}
	if !rec.Active || rec.TenantID != claims.CompanyID {
		return nil, e.refreshExpired(ctx, claims.CompanyID)
	}

	access, err := e.tokens.IssueAccess(claims.Identity())
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.CompanyID, nil, nil)

	return &RefreshResult{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(e.tokens.AccessTTL().Seconds()),
	}, nil
}

func (e *Engine) refreshExpired(ctx context.Context, tenantID int64) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, tenantID, ErrSessionExpired, nil)
	return ErrSessionExpired
}

/*
====================================
LOGOUT
====================================
*/

// Logout revokes every session of the tenant named by accessToken. It always
// succeeds: an undecodable token or a store failure is only logged, so the
// response never reveals token validity.
func (e *Engine) Logout(ctx context.Context, accessToken string) {
	if e == nil {
		return
	}

	claims, err := e.tokens.DecodeAccess(accessToken)
	if err != nil {
		e.log.Debug().Err(err).Msg("logout with undecodable token")
		e.emitAudit(ctx, auditEventLogout, false, 0, ErrInvalidToken, nil)
		return
	}

	if err := e.sessions.RevokeAll(ctx, claims.CompanyID); err != nil {
		e.metricInc(MetricBackendUnavailable)
		e.log.Warn().Err(err).Int64("tenant_id", claims.CompanyID).Msg("logout revocation failed")
		e.emitAudit(ctx, auditEventLogout, false, claims.CompanyID, unavailable(err), nil)
		return
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogout, true, claims.CompanyID, nil, nil)
}

/*
====================================
CHANGE PASSWORD
====================================
*/

// ChangePassword replaces the tenant's password and revokes all its sessions.
//
// A wrong old password fails with ErrInvalidCredentials; a weak new password
// fails with *WeakPasswordError.
func (e *Engine) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.DecodeAccess(accessToken)
	if err != nil {
		return e.passwordChangeFailed(ctx, 0, tokenError(err))
	}

	tenant, err := e.tenants.GetTenantByID(ctx, claims.CompanyID)
	if err != nil {
		if !errors.Is(err, ErrTenantNotFound) {
			err = unavailable(err)
		}
		return e.passwordChangeFailed(ctx, claims.CompanyID, err)
	}

	ok, err := e.verifyPassword(ctx, oldPassword, tenant.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return e.passwordChangeFailed(ctx, tenant.ID, ErrInvalidCredentials)
	}

	if err := checkStrength(newPassword); err != nil {
		e.metricInc(MetricPasswordChangeWeak)
		return e.passwordChangeFailed(ctx, tenant.ID, err)
	}

	if err := e.storeNewPassword(ctx, tenant.ID, newPassword); err != nil {
		return e.passwordChangeFailed(ctx, tenant.ID, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, tenant.ID, nil, nil)
	return nil
}

func (e *Engine) passwordChangeFailed(ctx context.Context, tenantID int64, err error) error {
	e.emitAudit(ctx, auditEventPasswordChangeFailure, false, tenantID, err, nil)
	return err
}

// storeNewPassword hashes pw, persists it and revokes every session of the tenant.
func (e *Engine) storeNewPassword(ctx context.Context, tenantID int64, pw string) error {
	hash, err := e.hashPassword(ctx, pw)
	if err != nil {
		return err
	}
	if err := e.tenants.UpdatePasswordHash(ctx, tenantID, hash); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return err
		}
		e.metricInc(MetricBackendUnavailable)
		return unavailable(err)
	}
	if err := e.sessions.RevokeAll(ctx, tenantID); err != nil {
		e.metricInc(MetricBackendUnavailable)
		e.log.Error().Err(err).Int64("tenant_id", tenantID).Msg("password stored but session revocation failed")
		return unavailable(err)
	}
	e.metricInc(MetricSessionInvalidated)
	return nil
}

/*
====================================
VALIDATE
====================================
*/

// ValidateToken checks accessToken without touching persistence. It never
// returns an error; failures are reported in the result.
func (e *Engine) ValidateToken(ctx context.Context, accessToken string) ValidationResult {
	claims, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return ValidationResult{Valid: false, Err: err}
	}
	return ValidationResult{Valid: true, Claims: claims}
}

// Authenticate decodes an access token, failing with ErrInvalidToken or
// ErrTokenExpired. It is the check behind middleware.Guard.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*jwt.AccessClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	claims, err := e.tokens.DecodeAccess(accessToken)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, tokenError(err)
	}
	e.metricInc(MetricValidateSuccess)
	return claims, nil
}

func tokenError(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrInvalidToken
}

func checkStrength(pw string) error {
	res := password.ValidateStrength(pw)
	if res.Valid {
		return nil
	}
	return &WeakPasswordError{Errors: res.Errors}
}
