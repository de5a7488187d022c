package fangauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blackfang-intel/fangauth/jwt"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/session"
	"github.com/redis/go-redis/v9"
)

const (
	demoEmail    = "demo@blackfangintel.com"
	demoPassword = "demo123"
)

type mockTenantProvider struct {
	mu      sync.Mutex
	tenants map[int64]TenantRecord
	nextID  int64

	lookupErr error
	updateErr error
	createErr error

	getByEmailCalls     int
	getByIDCalls        int
	updatePasswordCalls int
	touchCalls          int
	createCalls         int
}

func newMockTenantProvider() *mockTenantProvider {
	return &mockTenantProvider{tenants: map[int64]TenantRecord{}, nextID: 1}
}

func (m *mockTenantProvider) add(rec TenantRecord) TenantRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
	}
	if rec.ID >= m.nextID {
		m.nextID = rec.ID + 1
	}
	m.tenants[rec.ID] = rec
	return rec
}

func (m *mockTenantProvider) get(id int64) TenantRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenants[id]
}

func (m *mockTenantProvider) GetTenantByEmail(ctx context.Context, email string) (TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByEmailCalls++
	if m.lookupErr != nil {
		return TenantRecord{}, m.lookupErr
	}
	for _, t := range m.tenants {
		if t.Email == email && t.IsActive {
			return t, nil
		}
	}
	return TenantRecord{}, ErrTenantNotFound
}

func (m *mockTenantProvider) GetTenantByID(ctx context.Context, id int64) (TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++
	if m.lookupErr != nil {
		return TenantRecord{}, m.lookupErr
	}
	t, ok := m.tenants[id]
	if !ok || !t.IsActive {
		return TenantRecord{}, ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantProvider) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	t, ok := m.tenants[id]
	if !ok {
		return ErrTenantNotFound
	}
	t.PasswordHash = hash
	m.tenants[id] = t
	return nil
}

func (m *mockTenantProvider) TouchLastLogin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchCalls++
	return nil
}

func (m *mockTenantProvider) CreateTenant(ctx context.Context, in CreateTenantInput) (TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return TenantRecord{}, m.createErr
	}
	for _, t := range m.tenants {
		if t.Email == in.Email {
			return TenantRecord{}, ErrAccountExists
		}
	}
	now := time.Now().UTC()
	rec := TenantRecord{
		ID:               m.nextID,
		Name:             in.Name,
		Email:            in.Email,
		PasswordHash:     in.PasswordHash,
		CompanyName:      in.CompanyName,
		Industry:         in.Industry,
		SubscriptionPlan: in.SubscriptionPlan,
		MonthlyFee:       in.MonthlyFee,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.nextID++
	m.tenants[rec.ID] = rec
	return rec, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("test-secret-0123456789abcdef")
	cfg.Password.Iterations = 10_000
	return cfg
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.Config{Iterations: 10_000})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// seedDemo adds the demo tenant with id 1.
func seedDemo(t *testing.T, tp *mockTenantProvider) TenantRecord {
	t.Helper()
	hash, err := newTestHasher(t).Hash(demoPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return tp.add(TenantRecord{
		ID:               1,
		Name:             "Demo Automotive Dealership",
		Email:            demoEmail,
		PasswordHash:     hash,
		CompanyName:      "Demo Motors Pvt Ltd",
		Industry:         "Automotive",
		SubscriptionPlan: PlanProfessional,
		MonthlyFee:       45000,
		IsActive:         true,
	})
}

func newTestEngine(t *testing.T, cfg Config, tp TenantProvider, store session.Store) *Engine {
	t.Helper()
	b := New().WithConfig(cfg).WithTenantProvider(tp)
	if store != nil {
		b = b.WithSessionStore(store)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestBuildRequiresTenantProviderAndSecret(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); !errors.Is(err, ErrTenantProviderRequired) {
		t.Fatalf("expected ErrTenantProviderRequired, got %v", err)
	}

	cfg := testConfig()
	cfg.JWT.Secret = nil
	if _, err := New().WithConfig(cfg).WithTenantProvider(newMockTenantProvider()).Build(); err == nil {
		t.Fatal("expected missing secret to fail")
	}

	b := New().WithConfig(testConfig()).WithTenantProvider(newMockTenantProvider())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestDemoLoginCreatesOneActiveSession(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	store := session.NewMemoryStore()
	e := newTestEngine(t, testConfig(), tp, store)
	ctx := context.Background()

	res, err := e.Login(ctx, demoEmail, demoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.TokenType != "bearer" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ExpiresIn != int64((60 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in %d", res.ExpiresIn)
	}
	if res.Tenant.ID != 1 || res.Tenant.CompanyName != "Demo Motors Pvt Ltd" || res.Tenant.SubscriptionPlan != PlanProfessional {
		t.Fatalf("unexpected tenant summary: %+v", res.Tenant)
	}

	n, err := store.ActiveSessionCount(ctx, 1)
	if err != nil || n != 1 {
		t.Fatalf("expected one active session, got %d (%v)", n, err)
	}

	claims, err := e.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.CompanyID != 1 || claims.Email != demoEmail || claims.SubscriptionPlan != "professional" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if tp.touchCalls != 1 {
		t.Fatalf("expected last-login touch, got %d", tp.touchCalls)
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)

	if _, err := e.Login(context.Background(), "  Demo@BlackFangIntel.com ", demoPassword); err != nil {
		t.Fatalf("expected normalized email to log in: %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	hash, _ := newTestHasher(t).Hash("Inactive1!")
	tp.add(TenantRecord{ID: 2, Email: "off@x.com", PasswordHash: hash, IsActive: false})
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	cases := map[string][2]string{
		"unknown email":  {"nobody@x.com", demoPassword},
		"wrong password": {demoEmail, "wrong"},
		"empty password": {demoEmail, ""},
		"inactive":       {"off@x.com", "Inactive1!"},
	}
	for name, c := range cases {
		res, err := e.Login(ctx, c[0], c[1])
		if !errors.Is(err, ErrInvalidCredentials) || res != nil {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
		if err.Error() != ErrInvalidCredentials.Error() {
			t.Fatalf("%s: error text must not vary, got %q", name, err.Error())
		}
	}
	if got := e.MetricsSnapshot().Counters[MetricLoginFailure]; got != uint64(len(cases)) {
		t.Fatalf("expected %d failures counted, got %d", len(cases), got)
	}
}

func TestLoginBackendFailureIsUnavailable(t *testing.T) {
	tp := newMockTenantProvider()
	tp.lookupErr = errors.New("connection refused")
	e := newTestEngine(t, testConfig(), tp, nil)

	_, err := e.Login(context.Background(), demoEmail, demoPassword)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("backend failure must not look like bad credentials")
	}
}

func TestConcurrentLoginsKeepBothSessions(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	store := session.NewMemoryStore()
	e := newTestEngine(t, testConfig(), tp, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*LoginResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Login(ctx, demoEmail, demoPassword)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("login %d: %v", i, errs[i])
		}
	}
	if results[0].RefreshToken == results[1].RefreshToken {
		t.Fatal("expected distinct refresh tokens")
	}
	if n, _ := store.ActiveSessionCount(ctx, 1); n != 2 {
		t.Fatalf("expected two active sessions, got %d", n)
	}
	for i := range results {
		if _, err := e.Refresh(ctx, results[i].RefreshToken); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
}

func TestRefreshIssuesAccessOnly(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	login, err := e.Login(ctx, demoEmail, demoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	res, err := e.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if _, err := e.Authenticate(ctx, res.AccessToken); err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	// the refresh token keeps working
	if _, err := e.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	login, _ := e.Login(ctx, demoEmail, demoPassword)
	if _, err := e.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := e.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestRevokeAllThenRefreshIsSessionExpired(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	store := session.NewMemoryStore()
	e := newTestEngine(t, testConfig(), tp, store)
	ctx := context.Background()

	login, _ := e.Login(ctx, demoEmail, demoPassword)
	if err := store.RevokeAll(ctx, 1); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRefreshUnknownSessionIsSessionExpired(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)

	// signed by the same secret but never stored
	tok, err := e.tokens.IssueRefresh(jwt.Identity{CompanyID: 1, Email: demoEmail})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := e.Refresh(context.Background(), tok); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestLogoutRevokesAllAndAlwaysSucceeds(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	store := session.NewMemoryStore()
	e := newTestEngine(t, testConfig(), tp, store)
	ctx := context.Background()

	a, _ := e.Login(ctx, demoEmail, demoPassword)
	b, _ := e.Login(ctx, demoEmail, demoPassword)

	e.Logout(ctx, a.AccessToken)

	for _, tok := range []string{a.RefreshToken, b.RefreshToken} {
		if _, err := e.Refresh(ctx, tok); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected revoked session, got %v", err)
		}
	}

	// undecodable tokens are accepted silently
	e.Logout(ctx, "not-a-token")
	e.Logout(ctx, "")
	if got := e.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected one counted logout, got %d", got)
	}
}

func TestValidateTokenNeverFails(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e := newTestEngine(t, testConfig(), tp, nil)
	ctx := context.Background()

	login, _ := e.Login(ctx, demoEmail, demoPassword)
	calls := tp.getByIDCalls + tp.getByEmailCalls

	ok := e.ValidateToken(ctx, login.AccessToken)
	if !ok.Valid || ok.Claims == nil || ok.Err != nil {
		t.Fatalf("expected valid result, got %+v", ok)
	}

	for _, tok := range []string{"", "a.b.c", login.RefreshToken} {
		res := e.ValidateToken(ctx, tok)
		if res.Valid || res.Claims != nil || !errors.Is(res.Err, ErrInvalidToken) {
			t.Fatalf("expected invalid result for %q, got %+v", tok, res)
		}
	}

	if tp.getByIDCalls+tp.getByEmailCalls != calls {
		t.Fatal("validate must not touch the tenant provider")
	}

	var nilEngine *Engine
	if res := nilEngine.ValidateToken(ctx, login.AccessToken); res.Valid {
		t.Fatal("nil engine must not validate")
	}
}

func TestHashSlotWaitHonorsContext(t *testing.T) {
	tp := newMockTenantProvider()
	seedDemo(t, tp)
	cfg := testConfig()
	cfg.Password.MaxConcurrentHashes = 1
	e := newTestEngine(t, cfg, tp, nil)

	release, err := e.acquireHashSlot(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()
	if e.HashSlotsInUse() != 1 {
		t.Fatalf("expected one slot in use, got %d", e.HashSlotsInUse())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Login(ctx, demoEmail, demoPassword); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while slots are full, got %v", err)
	}
}

func TestLoginThrottleWithRedis(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	tp := newMockTenantProvider()
	seedDemo(t, tp)
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	e, err := New().WithConfig(cfg).WithTenantProvider(tp).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	ctx := WithClientIP(context.Background(), "10.1.1.1")

	for i := 0; i < 3; i++ {
		if _, err := e.Login(ctx, demoEmail, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	_, err = e.Login(ctx, demoEmail, demoPassword)
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	var limited *LoginRateLimitedError
	if !errors.As(err, &limited) || limited.RetryAfter <= 0 || limited.RetryAfter > cfg.Security.LoginWindow {
		t.Fatalf("expected retry-after within the window, got %v", err)
	}

	mr.FastForward(cfg.Security.LoginWindow + time.Second)
	if _, err := e.Login(ctx, demoEmail, demoPassword); err != nil {
		t.Fatalf("expected login after window, got %v", err)
	}
}

func TestLoginSurvivesThrottleOutage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer rdb.Close()

	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e, err := New().WithConfig(testConfig()).WithTenantProvider(tp).WithRedis(rdb).
		WithSessionStore(session.NewMemoryStore()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	mr.Close()

	if _, err := e.Login(context.Background(), demoEmail, demoPassword); err != nil {
		t.Fatalf("throttle outage must not fail login: %v", err)
	}
}

func TestRedisSessionStoreEndToEnd(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer rdb.Close()

	tp := newMockTenantProvider()
	seedDemo(t, tp)
	e, err := New().WithConfig(testConfig()).WithTenantProvider(tp).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	login, err := e.Login(ctx, demoEmail, demoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := e.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	e.Logout(ctx, login.AccessToken)
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	mr.Close()
	if _, err := e.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable with redis down, got %v", err)
	}
	if err := e.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
