package fangauth

import (
	"context"
	"errors"
	"strings"
)

// Register creates a tenant account.
//
// Strength is checked before anything touches persistence. An empty plan
// selects Account.DefaultPlan; the monthly fee comes from Account.Pricing.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (TenantSummary, error) {
	if e == nil {
		return TenantSummary{}, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return TenantSummary{}, e.registerFailed(ctx, ErrRegistrationDisabled, "feature_disabled")
	}

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	company := strings.TrimSpace(req.CompanyName)
	if email == "" || name == "" || company == "" {
		return TenantSummary{}, e.registerFailed(ctx, ErrRegistrationInvalid, "missing_field")
	}

	if err := checkStrength(req.Password); err != nil {
		return TenantSummary{}, e.registerFailed(ctx, err, "weak_password")
	}

	plan := e.config.Account.DefaultPlan
	if strings.TrimSpace(req.SubscriptionPlan) != "" {
		p, err := ParsePlan(req.SubscriptionPlan)
		if err != nil {
			return TenantSummary{}, e.registerFailed(ctx, err, "invalid_plan")
		}
		plan = p
	}

	hash, err := e.hashPassword(ctx, req.Password)
	if err != nil {
		return TenantSummary{}, err
	}

	rec, err := e.tenants.CreateTenant(ctx, CreateTenantInput{
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		CompanyName:      company,
		Industry:         strings.TrimSpace(req.Industry),
		SubscriptionPlan: plan,
		MonthlyFee:       e.config.Account.Pricing.MonthlyFee(plan),
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			return TenantSummary{}, e.registerFailed(ctx, ErrAccountExists, "duplicate")
		}
		e.metricInc(MetricBackendUnavailable)
		return TenantSummary{}, e.registerFailed(ctx, unavailable(err), "backend")
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, rec.ID, nil, func() map[string]string {
		return map[string]string{"plan": plan.String()}
	})
	return rec.Summary(), nil
}

func (e *Engine) registerFailed(ctx context.Context, err error, reason string) error {
	e.emitAudit(ctx, auditEventRegisterFailure, false, 0, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// Me returns the active tenant named by accessToken.
func (e *Engine) Me(ctx context.Context, accessToken string) (TenantSummary, error) {
	claims, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return TenantSummary{}, err
	}
	return e.TenantByID(ctx, claims.CompanyID)
}

// TenantByID loads the active tenant id, mapping backend failures to ErrUnavailable.
func (e *Engine) TenantByID(ctx context.Context, id int64) (TenantSummary, error) {
	if e == nil {
		return TenantSummary{}, ErrEngineNotReady
	}
	rec, err := e.tenants.GetTenantByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return TenantSummary{}, ErrTenantNotFound
		}
		e.metricInc(MetricBackendUnavailable)
		return TenantSummary{}, unavailable(err)
	}
	if !rec.IsActive {
		return TenantSummary{}, ErrTenantNotFound
	}
	return rec.Summary(), nil
}
