package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces every key written by RedisStore.
	DefaultPrefix = "fangauth"
	// DefaultTTL matches the default refresh token lifetime.
	DefaultTTL = 30 * 24 * time.Hour
)

// revokeScript clears the trailing active byte and keeps the remaining TTL.
// With ARGV[1] set it only touches a record owned by that encoded tenant.
// Returns 0 missing, 1 revoked, 2 foreign owner, -1 corrupt.
// It touches KEYS[1] only, so it runs on a cluster node like any single-key command.
const revokeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if #data ~= 18 or string.byte(data, 1) ~= 1 then
  return -1
end
if ARGV[1] and string.sub(data, 2, 9) ~= ARGV[1] then
  return 2
end
if string.byte(data, 18) == 0 then
  return 1
end
local ttl = redis.call("PTTL", KEYS[1])
local updated = string.sub(data, 1, 17) .. string.char(0)
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// RedisStore persists sessions in Redis. Keys hold sha256(refresh token), never the token.
//
// No command or script spans two keys, so any redis.UniversalClient works,
// Redis Cluster included.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns a store writing under prefix with records expiring after ttl.
// Empty prefix and non-positive ttl select DefaultPrefix and DefaultTTL.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create stores an active record for refreshToken and indexes it under the tenant.
// The index entry is written first, so a live session is never missing from it.
//
//	Performance: 1 MULTI/EXEC with SADD and PEXPIRE, then 1 SET.
func (s *RedisStore) Create(ctx context.Context, tenantID int64, refreshToken string) error {
	if tenantID <= 0 {
		return ErrInvalidTenant
	}
	if refreshToken == "" {
		return ErrEmptyToken
	}

	id := tokenID(refreshToken)
	blob := Encode(Record{TenantID: tenantID, CreatedAt: s.now().UTC(), Active: true})
	tenantKey := s.tenantKey(tenantID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, tenantKey, id)
		pipe.PExpire(ctx, tenantKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.sessionKey(id), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Validate loads the record for refreshToken. Expired keys read as ErrSessionNotFound.
func (s *RedisStore) Validate(ctx context.Context, refreshToken string) (Record, error) {
	if refreshToken == "" {
		return Record{}, ErrSessionNotFound
	}

	data, err := s.redis.Get(ctx, s.sessionKey(tokenID(refreshToken))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return rec, nil
}

// Revoke flips the active byte of the session for refreshToken.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	res, err := revokeLua.Run(ctx, s.redis, []string{s.sessionKey(tokenID(refreshToken))}).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res < 0 {
		return fmt.Errorf("%w: corrupt session record", ErrRedisUnavailable)
	}
	return nil
}

// RevokeAll deactivates every indexed session of tenantID, pruning index
// members whose records expired, broke or moved to another tenant. Sessions
// created while it runs may survive; they postdate the revocation.
//
//	Performance: SMEMBERS, 1 pipeline of per-session EVALs, at most 1 SREM.
func (s *RedisStore) RevokeAll(ctx context.Context, tenantID int64) error {
	if tenantID <= 0 {
		return nil
	}

	tenantKey := s.tenantKey(tenantID)
	ids, err := s.redis.SMembers(ctx, tenantKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil
	}

	owner := encodeTenant(tenantID)
	cmds := make([]*redis.Cmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = revokeLua.Eval(ctx, pipe, []string{s.sessionKey(id)}, owner)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var stale []any
	for i, cmd := range cmds {
		if res, _ := cmd.Int64(); res != 1 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.redis.SRem(ctx, tenantKey, stale...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionCount returns the number of active sessions indexed for tenantID.
func (s *RedisStore) ActiveSessionCount(ctx context.Context, tenantID int64) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.tenantKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	active := 0
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		rec, decErr := Decode(data)
		if decErr != nil || rec.TenantID != tenantID {
			continue
		}
		if rec.Active {
			active++
		}
	}
	return active, nil
}

// Ping checks Redis availability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":sess:" + id
}

func (s *RedisStore) tenantKey(tenantID int64) string {
	return s.prefix + ":tenant:" + strconv.FormatInt(tenantID, 10)
}

func tokenID(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
