package middleware

import (
	"context"
	"math"
	"sync"
	"time"

	"internship-portal/internal/shared/telemetry"
)

// LocalLimiter is an in-process token bucket per key. Buckets that have been
// full for idleTTL are dropped on the next sweep so guest ids do not pile up.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	now       func() time.Time
	idleTTL   time.Duration
	lastSweep time.Time
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// NewLocalLimiter returns a limiter using now as its clock (time.Now when nil).
func NewLocalLimiter(now func() time.Time) *LocalLimiter {
	if now == nil {
		now = time.Now
	}
	return &LocalLimiter{
		buckets: make(map[string]*tokenBucket),
		now:     now,
		idleTTL: 10 * time.Minute,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / rule.Rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// Len reports how many buckets are tracked.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *LocalLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// CounterStore is the subset of a shared key/value store used for fixed-window limits.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// SharedLimiter enforces fixed-window limits in a store shared by every API replica.
// A window holds Burst requests and lasts Burst/Rate seconds. Store errors fail open.
type SharedLimiter struct {
	Store  CounterStore
	Prefix string
}

func (l *SharedLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.Store == nil || rule.disabled() {
		return true, 0
	}
	window := time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	fullKey := l.Prefix + key

	count, err := l.Store.Incr(ctx, fullKey)
	if err != nil {
		telemetry.Warn("ratelimit.store_failed", map[string]any{"op": "incr", "error": err.Error()})
		return true, 0
	}
	if count == 1 {
		if err := l.Store.Expire(ctx, fullKey, window); err != nil {
			telemetry.Warn("ratelimit.store_failed", map[string]any{"op": "expire", "error": err.Error()})
		}
	}
	if count <= int64(rule.Burst) {
		return true, 0
	}
	ttl, err := l.Store.TTL(ctx, fullKey)
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return false, ttl
}
