package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// MemoryLimiter keeps fixed-window counters in a keyed map guarded by a
// mutex, so read-then-increment is a single atomic step. Windows reset lazily
// on the first admission after expiry; Sweep optionally reclaims dead keys.
type MemoryLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	policies map[domain.Action]Policy
	windows  map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(clock clockwork.Clock, policies map[domain.Action]Policy) *MemoryLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &MemoryLimiter{
		clock:    clock,
		policies: policies,
		windows:  make(map[string]*window),
	}
}

func (l *MemoryLimiter) Admit(_ context.Context, subject domain.UserID, action domain.Action) (domain.Decision, error) {
	policy, ok := l.policies[action]
	if !ok {
		return domain.Decision{}, fmt.Errorf("ratelimit: unknown action %q", action)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	key := string(subject) + "|" + string(action)

	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(policy.Window)}
		l.windows[key] = w
	}

	if w.count >= policy.Limit {
		// Rejections do not consume a slot.
		return domain.Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return domain.Decision{
		Allowed:   true,
		Remaining: policy.Limit - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Sweep drops expired windows every interval until ctx is cancelled. Purely a
// memory reclamation; correctness never depends on it running.
func (l *MemoryLimiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := l.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.removeExpired()
		}
	}
}

func (l *MemoryLimiter) removeExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)
