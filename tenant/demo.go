package tenant

import (
	"context"
	"errors"

	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/password"
)

const (
	DemoName        = "Demo Automotive Dealership"
	DemoCompanyName = "Demo Motors Pvt Ltd"
	DemoIndustry    = "Automotive"
)

// SeedDemo creates the demo tenant through tp unless its email is taken. It
// reports whether a record was created. The demo tenant logs in through the
// normal password path.
func SeedDemo(ctx context.Context, tp fangauth.TenantProvider, hasher *password.Hasher, demo fangauth.DemoConfig, pricing fangauth.PlanPricing) (bool, error) {
	email := fangauth.NormalizeEmail(demo.Email)
	if _, err := tp.GetTenantByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, fangauth.ErrTenantNotFound) {
		return false, err
	}

	hash, err := hasher.Hash(demo.Password)
	if err != nil {
		return false, err
	}
	_, err = tp.CreateTenant(ctx, fangauth.CreateTenantInput{
		Name:             DemoName,
		Email:            email,
		PasswordHash:     hash,
		CompanyName:      DemoCompanyName,
		Industry:         DemoIndustry,
		SubscriptionPlan: fangauth.PlanProfessional,
		MonthlyFee:       pricing.MonthlyFee(fangauth.PlanProfessional),
	})
	if errors.Is(err, fangauth.ErrAccountExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
