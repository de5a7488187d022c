package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type counter interface {
	ActiveSessionCount(ctx context.Context, tenantID int64) (int, error)
}

type storeUnderTest interface {
	Store
	counter
}

func newRedisStoreTest(t *testing.T) (*RedisStore, *redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "ft", 0)
	return store, rdb, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

// eachStore runs fn against both backends.
func eachStore(t *testing.T, fn func(t *testing.T, s storeUnderTest)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("redis", func(t *testing.T) {
		store, _, _, done := newRedisStoreTest(t)
		defer done()
		fn(t, store)
	})
}

func TestCreateThenValidate(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Create(ctx, 7, "refresh-a"); err != nil {
			t.Fatalf("create: %v", err)
		}

		rec, err := s.Validate(ctx, "refresh-a")
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if rec.TenantID != 7 || !rec.Active {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.CreatedAt.IsZero() {
			t.Fatal("expected creation time to be set")
		}
	})
}

func TestValidateUnknownToken(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		if _, err := s.Validate(context.Background(), "never-issued"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestRevokeKeepsRecordInactive(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Create(ctx, 7, "refresh-a"); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Revoke(ctx, "refresh-a"); err != nil {
			t.Fatalf("revoke: %v", err)
		}

		rec, err := s.Validate(ctx, "refresh-a")
		if err != nil {
			t.Fatalf("validate after revoke: %v", err)
		}
		if rec.Active {
			t.Fatal("expected revoked session to be inactive")
		}
		if rec.TenantID != 7 {
			t.Fatalf("expected tenant to be preserved, got %d", rec.TenantID)
		}
	})
}

func TestRevokeUnknownIsNoop(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Revoke(ctx, "missing"); err != nil {
			t.Fatalf("revoke missing: %v", err)
		}
		if err := s.Revoke(ctx, ""); err != nil {
			t.Fatalf("revoke empty: %v", err)
		}
		if _, err := s.Validate(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("revoke must not create records, got %v", err)
		}
	})
}

func TestCreateOverwritesRevokedSession(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Create(ctx, 7, "refresh-a"); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Revoke(ctx, "refresh-a"); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if err := s.Create(ctx, 7, "refresh-a"); err != nil {
			t.Fatalf("recreate: %v", err)
		}

		rec, err := s.Validate(ctx, "refresh-a")
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if !rec.Active {
			t.Fatal("expected overwrite to reactivate the session")
		}
	})
}

func TestRevokeAllIsScopedToTenant(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		for _, tok := range []string{"t7-a", "t7-b", "t7-c"} {
			if err := s.Create(ctx, 7, tok); err != nil {
				t.Fatalf("create %s: %v", tok, err)
			}
		}
		if err := s.Create(ctx, 8, "t8-a"); err != nil {
			t.Fatalf("create: %v", err)
		}

		if err := s.RevokeAll(ctx, 7); err != nil {
			t.Fatalf("revoke all: %v", err)
		}

		for _, tok := range []string{"t7-a", "t7-b", "t7-c"} {
			rec, err := s.Validate(ctx, tok)
			if err != nil {
				t.Fatalf("validate %s: %v", tok, err)
			}
			if rec.Active {
				t.Fatalf("expected %s to be revoked", tok)
			}
		}
		rec, err := s.Validate(ctx, "t8-a")
		if err != nil {
			t.Fatalf("validate other tenant: %v", err)
		}
		if !rec.Active {
			t.Fatal("expected other tenant's session to stay active")
		}

		n, err := s.ActiveSessionCount(ctx, 7)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected 0 active sessions, got %d", n)
		}
		if err := s.RevokeAll(ctx, 99); err != nil {
			t.Fatalf("revoke all for tenant without sessions: %v", err)
		}
	})
}

func TestRevokeAllIgnoresTokenReassignedToOtherTenant(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Create(ctx, 7, "shared"); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Create(ctx, 8, "shared"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if err := s.RevokeAll(ctx, 7); err != nil {
			t.Fatalf("revoke all: %v", err)
		}

		rec, err := s.Validate(ctx, "shared")
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if rec.TenantID != 8 || !rec.Active {
			t.Fatalf("expected tenant 8 session to stay active, got %+v", rec)
		}
	})
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		if err := s.Create(ctx, 0, "tok"); !errors.Is(err, ErrInvalidTenant) {
			t.Fatalf("expected ErrInvalidTenant, got %v", err)
		}
		if err := s.Create(ctx, 1, ""); !errors.Is(err, ErrEmptyToken) {
			t.Fatalf("expected ErrEmptyToken, got %v", err)
		}
	})
}

func TestConcurrentCreateAndRevokeAll(t *testing.T) {
	eachStore(t, func(t *testing.T, s storeUnderTest) {
		ctx := context.Background()
		const workers = 16

		var wg sync.WaitGroup
		errs := make(chan error, workers*2)
		for i := 0; i < workers; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				errs <- s.Create(ctx, 7, fmt.Sprintf("tok-%d", i))
			}(i)
			go func() {
				defer wg.Done()
				errs <- s.RevokeAll(ctx, 7)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent op: %v", err)
			}
		}

		for i := 0; i < workers; i++ {
			if _, err := s.Validate(ctx, fmt.Sprintf("tok-%d", i)); err != nil {
				t.Fatalf("session %d lost: %v", i, err)
			}
		}

		if err := s.RevokeAll(ctx, 7); err != nil {
			t.Fatalf("final revoke all: %v", err)
		}
		n, err := s.ActiveSessionCount(ctx, 7)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected every session revoked, %d active", n)
		}
	})
}
