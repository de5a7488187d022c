package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/password"
	"github.com/blackfang-intel/fangauth/tenant"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const loadPassword = "L0ad!Test-Password"

type tenantState struct {
	email   string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		tenants     = flag.Int("tenants", 200, "number of tenants to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase")
		rps         = flag.Float64("rps", 0, "request pacing per phase; 0 disables pacing")
		iterations  = flag.Int("iterations", 10_000, "PBKDF2 iterations for seeded tenants")
		redisURL    = flag.String("redis-url", "", "redis URL; if empty, REDIS_URL env or miniredis is used")
	)
	flag.Parse()

	if *tenants <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tenants, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := openRedis(*redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := fangauth.DefaultConfig()
	cfg.JWT.Secret = []byte(uuid.NewString() + uuid.NewString())
	cfg.Password.Iterations = *iterations
	cfg.Security.EnableLoginThrottle = false
	cfg.Session.RedisPrefix = "fangauth-loadtest"

	store := tenant.NewMemoryStore()
	states, err := seed(ctx, store, cfg, *tenants)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	engine, err := fangauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithTenantProvider(store).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	login := runPhase(ctx, states, *ops, *concurrency, *rps, func(ctx context.Context, s *tenantState) error {
		res, err := engine.Login(ctx, s.email, loadPassword)
		if err != nil {
			return err
		}
		s.access, s.refresh = res.AccessToken, res.RefreshToken
		return nil
	})
	refresh := runPhase(ctx, states, *ops, *concurrency, *rps, func(ctx context.Context, s *tenantState) error {
		res, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access = res.AccessToken
		return nil
	})
	validate := runPhase(ctx, states, *ops, *concurrency, *rps, func(ctx context.Context, s *tenantState) error {
		_, err := engine.Authenticate(ctx, s.access)
		return err
	})
	revoke := runPhase(ctx, states, *ops, *concurrency, *rps, func(ctx context.Context, s *tenantState) error {
		engine.Logout(ctx, s.access)
		if _, err := engine.Refresh(ctx, s.refresh); err == nil {
			return fmt.Errorf("refresh succeeded after revoke-all")
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("login", login)
	printStats("refresh", refresh)
	printStats("validate", validate)
	printStats("revoke_all", revoke)
	fmt.Printf("hash slots in use at exit: %d\n", engine.HashSlotsInUse())
}

func openRedis(url string) (redis.UniversalClient, func(), error) {
	if url == "" {
		url = os.Getenv("REDIS_URL")
	}
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opt)
	fmt.Printf("using redis at %s\n", opt.Addr)
	return client, func() { _ = client.Close() }, nil
}

// seed creates n tenants sharing one password hash; hashing each would
// dominate startup.
func seed(ctx context.Context, store *tenant.MemoryStore, cfg fangauth.Config, n int) ([]tenantState, error) {
	hasher, err := password.NewHasher(password.Config{Iterations: cfg.Password.Iterations})
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	fmt.Printf("seeding %d tenants...\n", n)
	states := make([]tenantState, n)
	for i := range states {
		email := fmt.Sprintf("dealer-%d@loadtest.local", i)
		if _, err := store.CreateTenant(ctx, fangauth.CreateTenantInput{
			Name:             fmt.Sprintf("Dealer %d", i),
			Email:            email,
			PasswordHash:     hash,
			CompanyName:      fmt.Sprintf("Dealer %d Motors", i),
			SubscriptionPlan: fangauth.PlanProfessional,
			MonthlyFee:       cfg.Account.Pricing.Professional,
		}); err != nil {
			return nil, err
		}
		states[i].email = email
	}
	return states, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

// runPhase drives op against tenants round-robin. Operations on one tenant are
// serialized so refresh tokens stay paired with their logins.
func runPhase(ctx context.Context, states []tenantState, ops, concurrency int, rps float64, op func(context.Context, *tenantState) error) phaseStats {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	pacer := rate.NewLimiter(limit, concurrency)

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if err := pacer.Wait(ctx); err != nil {
					return
				}
				state := &states[i%len(states)]
				opCtx := fangauth.WithRequestID(ctx, uuid.NewString())

				state.mu.Lock()
				t0 := time.Now()
				err := op(opCtx, state)
				d := time.Since(t0)
				state.mu.Unlock()

				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
