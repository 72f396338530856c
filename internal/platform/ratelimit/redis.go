package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// RedisLimiter shares fixed-window counters between replicas using
// INCR + EXPIRE. Same contract as MemoryLimiter, different store.
type RedisLimiter struct {
	client    *redis.Client
	clock     clockwork.Clock
	policies  map[domain.Action]Policy
	keyPrefix string
}

func NewRedisLimiter(client *redis.Client, clock clockwork.Clock, policies map[domain.Action]Policy, prefix string) *RedisLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client:    client,
		clock:     clock,
		policies:  policies,
		keyPrefix: prefix,
	}
}

func (l *RedisLimiter) Admit(ctx context.Context, subject domain.UserID, action domain.Action) (domain.Decision, error) {
	policy, ok := l.policies[action]
	if !ok {
		return domain.Decision{}, fmt.Errorf("ratelimit: unknown action %q", action)
	}

	key := fmt.Sprintf("%s:%s:%s", l.keyPrefix, action, subject)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, policy.Window).Err(); err != nil {
			return domain.Decision{}, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}

	resetAt, err := l.resetAt(ctx, key, policy)
	if err != nil {
		return domain.Decision{}, err
	}

	if count > int64(policy.Limit) {
		// Undo the increment so rejected attempts never consume a slot; the
		// counter stays pinned at the limit until the window expires.
		if err := l.client.Decr(ctx, key).Err(); err != nil {
			return domain.Decision{}, fmt.Errorf("ratelimit: decr %s: %w", key, err)
		}
		return domain.Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return domain.Decision{
		Allowed:   true,
		Remaining: policy.Limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

func (l *RedisLimiter) resetAt(ctx context.Context, key string, policy Policy) (time.Time, error) {
	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("ratelimit: pttl %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = policy.Window
	}
	return l.clock.Now().Add(ttl), nil
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)
