package rate

import "errors"

var (
	// ErrRateLimited is returned while a login identifier or IP is over its failure budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every Redis failure seen by the limiter.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
