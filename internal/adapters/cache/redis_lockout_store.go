package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const (
	lockoutKeyPrefix = "credential:lockout:"

	fieldFailedCount = "failed_count"
	fieldLockedUntil = "locked_until"
)

// RedisLockoutStore implements lockout and request-rate counters in Redis
// hashes. Counters expire after the window so stale failures age out.
type RedisLockoutStore struct {
	client *redis.Client
}

// NewRedisLockoutStore creates a lockout store backed by Redis hashes.
func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	vals, err := s.client.HMGet(ctx, lockoutKeyPrefix+key, fieldFailedCount, fieldLockedUntil).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	return decodeLockoutState(vals), nil
}

// RecordFailure counts one attempt against key. The first attempt opens the
// window; reaching threshold stamps locked_until and restarts the expiry so the
// lock lasts the full window.
func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	redisKey := lockoutKeyPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, fieldFailedCount, 1).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	state := ports.LockoutState{FailedCount: int(count)}

	switch {
	case int(count) >= threshold:
		lockedUntil := now.Add(lockoutWindow).UTC()
		if _, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, fieldLockedUntil, lockedUntil.Unix())
			p.Expire(ctx, redisKey, lockoutWindow)
			return nil
		}); err != nil {
			return ports.LockoutState{}, err
		}
		state.LockedUntil = &lockedUntil
	case count == 1:
		if err := s.client.Expire(ctx, redisKey, lockoutWindow).Err(); err != nil {
			return state, err
		}
	}
	return state, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutKeyPrefix+key).Err()
}

// decodeLockoutState reads the HMGET reply; missing or malformed fields decode
// to their zero value.
func decodeLockoutState(vals []any) ports.LockoutState {
	var state ports.LockoutState
	if len(vals) != 2 {
		return state
	}
	if raw, ok := vals[0].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := vals[1].(string); ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state
}
