package fangauth

import "testing"

func TestSecurityReportMemoryBackend(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg, newMockTenantProvider(), nil)

	r := e.SecurityReport()
	if r.SessionBackend != "memory" {
		t.Fatalf("expected memory backend, got %q", r.SessionBackend)
	}
	if r.LoginThrottleActive {
		t.Fatal("throttle cannot be active without redis")
	}
	if r.RefreshRotation {
		t.Fatal("refresh tokens are never rotated")
	}
	if !r.WeakIterationWarning {
		t.Fatal("10k iterations should be flagged")
	}
	if r.SigningAlgorithm != "HS256" {
		t.Fatalf("unexpected algorithm %q", r.SigningAlgorithm)
	}
}

func TestSecurityReportRedisBackend(t *testing.T) {
	mr, client := newTestRedis(t)
	defer mr.Close()
	defer client.Close()

	e, err := New().WithConfig(testConfig()).WithTenantProvider(newMockTenantProvider()).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	r := e.SecurityReport()
	if r.SessionBackend != "redis" || !r.LoginThrottleActive || !r.IPThrottleActive {
		t.Fatalf("unexpected report: %+v", r)
	}
}
