package fangauth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Name:        "Ravi Kumar",
		Email:       "Ravi@Dealer.in",
		Password:    "Str0ng!Pass",
		CompanyName: "Kumar Motors",
		Industry:    "Automotive",
	}
}

func TestRegisterDefaultsToProfessional(t *testing.T) {
	tp := newMockTenantProvider()
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	sum, err := e.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sum.Email != "ravi@dealer.in" || sum.SubscriptionPlan != PlanProfessional || sum.MonthlyFee != 45000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if _, err := e.Login(ctx, "ravi@dealer.in", "Str0ng!Pass"); err != nil {
		t.Fatalf("login after register: %v", err)
	}
}

func TestRegisterPlanPricing(t *testing.T) {
	tp := newMockTenantProvider()
	e := newTestEngine(t, testConfig(), tp, nil)

	for plan, fee := range map[string]int64{"basic": 25000, "Enterprise": 75000} {
		req := validRegistration()
		req.Email = plan + "@dealer.in"
		req.SubscriptionPlan = plan
		sum, err := e.Register(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", plan, err)
		}
		if sum.MonthlyFee != fee {
			t.Fatalf("%s: expected fee %d, got %d", plan, fee, sum.MonthlyFee)
		}
	}
}

func TestRegisterRejections(t *testing.T) {
	tp := newMockTenantProvider()
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	if _, err := e.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	dup := validRegistration()
	dup.Email = "  RAVI@dealer.in"
	if _, err := e.Register(ctx, dup); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	weak := validRegistration()
	weak.Email = "weak@dealer.in"
	weak.Password = "abc"
	creates := tp.createCalls
	if _, err := e.Register(ctx, weak); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if tp.createCalls != creates {
		t.Fatal("weak password must be rejected before persistence")
	}

	plan := validRegistration()
	plan.Email = "plan@dealer.in"
	plan.SubscriptionPlan = "platinum"
	if _, err := e.Register(ctx, plan); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}

	missing := validRegistration()
	missing.CompanyName = " "
	if _, err := e.Register(ctx, missing); !errors.Is(err, ErrRegistrationInvalid) {
		t.Fatalf("expected ErrRegistrationInvalid, got %v", err)
	}

	if got := e.MetricsSnapshot().Counters[MetricRegisterDuplicate]; got != 1 {
		t.Fatalf("expected one duplicate counted, got %d", got)
	}
}

func TestRegisterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Account.Enabled = false
	e := newTestEngine(t, cfg, newMockTenantProvider(), nil)

	if _, err := e.Register(context.Background(), validRegistration()); !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestMe(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	login, _ := e.Login(ctx, demoEmail, demoPassword)
	me, err := e.Me(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != 1 || me.Name != "Demo Automotive Dealership" {
		t.Fatalf("unexpected tenant: %+v", me)
	}

	rec := tp.get(1)
	rec.IsActive = false
	tp.add(rec)
	if _, err := e.Me(ctx, login.AccessToken); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound for deactivated tenant, got %v", err)
	}
	if _, err := e.Me(ctx, "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueAPIKeyRequiresPlan(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	login, _ := e.Login(ctx, demoEmail, demoPassword)
	key, err := e.IssueAPIKey(ctx, login.AccessToken, PlanProfessional)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	info, err := ParseAPIKey(key)
	if err != nil || info.CompanyID != 1 {
		t.Fatalf("unexpected key %q: %+v (%v)", key, info, err)
	}

	if _, err := e.IssueAPIKey(ctx, login.AccessToken, PlanEnterprise); !errors.Is(err, ErrInsufficientPlan) {
		t.Fatalf("expected ErrInsufficientPlan, got %v", err)
	}
	if !strings.HasPrefix(key, "bf_1_") {
		t.Fatalf("unexpected key prefix: %q", key)
	}
}
