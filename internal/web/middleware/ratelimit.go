package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
)

// ErrRateLimited is reported to clients that exceeded their budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateStore counts requests per key in fixed windows.
type RateStore interface {
	// Allow records one request for key and reports whether it is within
	// limit for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit limits each client IP to limit requests per window. Keys are
// namespaced by scope so different route groups keep separate budgets.
// When the store fails the request is let through and the error logged.
func RateLimit(store RateStore, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + ClientIP(r)

			ok, err := store.Allow(r.Context(), key, limit, window)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limit store unavailable", "error", err)
				ok = true
			}
			if !ok {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", retryAfter)
				rejectJSON(w, ErrRateLimited, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MemoryRateStore keeps counters in process memory. Limits are per
// instance.
type MemoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	lastSweep time.Time
	now       func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateStore returns an empty in-memory store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{windows: make(map[string]*rateWindow), now: time.Now}
}

func (m *MemoryRateStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now, window)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		m.windows[key] = &rateWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep drops expired windows at most once per window length.
func (m *MemoryRateStore) sweep(now time.Time, window time.Duration) {
	if now.Sub(m.lastSweep) < window {
		return
	}
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
	m.lastSweep = now
}

// incrScript increments a window counter and arms its expiry on first use.
const incrScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`

// scripter is the part of redis.Cmdable the store uses.
type scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisRateStore shares counters between instances through Redis.
type RedisRateStore struct {
	client scripter
	prefix string
}

// NewRedisRateStore returns a store that prefixes every key with prefix.
func NewRedisRateStore(client redis.Cmdable, prefix string) *RedisRateStore {
	return &RedisRateStore{client: client, prefix: prefix}
}

func (s *RedisRateStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := s.client.Eval(ctx, incrScript, []string{s.prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}
