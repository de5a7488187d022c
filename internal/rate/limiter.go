package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix      = "fangauth"
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix           string
	EnableIPThrottle bool
	MaxLoginAttempts int
	Window           time.Duration
}

// Limiter counts failed logins per email and per IP using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client. Zero values in
// cfg fall back to 5 attempts per 15 minutes.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the email or IP has used its failure
// budget for the current window. It never increments.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if err := l.checkCounter(ctx, l.loginEmailKey(email)); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.loginIPKey(ip)); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login. It returns ErrRateLimited when this
// failure exhausted the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	limited := false

	count, err := l.incrementWithTTL(ctx, l.loginEmailKey(email))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		limited = true
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.loginIPKey(ip))
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxLoginAttempts) {
			limited = true
		}
	}

	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the email and IP counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	keys := []string{l.loginEmailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	// one DEL per key: the email and IP keys may live in different cluster slots
	_, err := l.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// LoginAttempts returns the failure count recorded for an email in the current window.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginEmailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// RetryAfter reports how long until neither the email nor the IP counter is
// over budget. Counters under budget do not count.
func (l *Limiter) RetryAfter(ctx context.Context, email, ip string) (time.Duration, error) {
	keys := []string{l.loginEmailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	var wait time.Duration
	for _, key := range keys {
		if err := l.checkCounter(ctx, key); !errors.Is(err, ErrRateLimited) {
			if err != nil {
				return 0, err
			}
			continue
		}
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if ttl > wait {
			wait = ttl
		}
	}
	return wait, nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	return nil
}

// incrementWithTTL bumps key and arms its window in one round trip. EXPIRE NX
// only sets a TTL on a key without one, so the window stays fixed.
func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.config.Window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func (l *Limiter) loginEmailKey(email string) string {
	return l.config.Prefix + ":lf:" + email
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.Prefix + ":lfi:" + ip
}
