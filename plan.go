package fangauth

import "strings"

// Plan is a subscription tier.
type Plan string

const (
	PlanBasic        Plan = "basic"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// ParsePlan maps a case-insensitive plan name to a Plan.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if p.Level() == 0 {
		return "", ErrInvalidPlan
	}
	return p, nil
}

// Level ranks the plan: basic 1, professional 2, enterprise 3, unknown 0.
func (p Plan) Level() int {
	switch p {
	case PlanBasic:
		return 1
	case PlanProfessional:
		return 2
	case PlanEnterprise:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether p grants access to routes requiring required.
// An unknown required plan is treated as basic.
func (p Plan) Satisfies(required Plan) bool {
	need := required.Level()
	if need == 0 {
		need = PlanBasic.Level()
	}
	return p.Level() >= need
}

func (p Plan) String() string {
	return string(p)
}

// PlanPricing holds monthly fees per plan, in whole currency units.
type PlanPricing struct {
	Basic        int64
	Professional int64
	Enterprise   int64
}

// MonthlyFee returns the fee of p, falling back to the professional fee.
func (pp PlanPricing) MonthlyFee(p Plan) int64 {
	switch p {
	case PlanBasic:
		return pp.Basic
	case PlanEnterprise:
		return pp.Enterprise
	default:
		return pp.Professional
	}
}
