package resilience

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"k8s.io/utils/clock"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/internal/pathutil"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/requestutil"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
	"github.com/kart-io/axiomcore/pkg/utils/errors"
	"github.com/kart-io/axiomcore/pkg/utils/response"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow records a request for key and reports whether it is allowed.
	Allow(ctx context.Context, key string) (Decision, error)

	// Reset resets the rate limit counter for the given key.
	Reset(ctx context.Context, key string) error
}

// RateLimitWithOptions returns a middleware limiting requests per client IP
// on the configured paths. Other paths pass through untouched.
//
// Limiter errors fail open: the request proceeds and the error is logged.
func RateLimitWithOptions(opts mwopts.RateLimitOptions, limiter RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		limiter = NewMemoryRateLimiter(opts.Limit, opts.Window)
	}
	limited := pathutil.NewPathMatcher(opts.Paths, opts.PathPrefixes)

	return func(c *gin.Context) {
		if !limited(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := requestutil.ClientIP(c.Request, opts.TrustedProxies)

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Errorw("rate limiter error",
				"error", err.Error(),
				"key", key,
			)
			c.Next()
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))

		if !d.Allowed {
			c.Header(HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
			response.FailErrno(c, errors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// ============================================================================
// Memory Rate Limiter Implementation
// ============================================================================

// MemoryRateLimiter implements a sliding window log per key in memory.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	clock  clock.WithTicker
	store  sync.Map

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

type rateLimitEntry struct {
	mu        sync.Mutex
	requests  []time.Time
	lastCheck time.Time
}

// NewMemoryRateLimiter creates a new memory-based rate limiter.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return NewMemoryRateLimiterWithClock(limit, window, clock.RealClock{})
}

// NewMemoryRateLimiterWithClock creates a memory rate limiter reading time from clk.
func NewMemoryRateLimiterWithClock(limit int, window time.Duration, clk clock.WithTicker) *MemoryRateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	m := &MemoryRateLimiter{
		limit:       limit,
		window:      window,
		clock:       clk,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupExpiredEntries()
	return m
}

// Allow implements RateLimiter.
func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := m.clock.Now()

	value, _ := m.store.LoadOrStore(key, &rateLimitEntry{
		requests: make([]time.Time, 0, m.limit),
	})
	entry := value.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.lastCheck = now
	entry.requests = filterExpiredRequests(entry.requests, now.Add(-m.window))

	if len(entry.requests) >= m.limit {
		return Decision{
			Limit:      m.limit,
			RetryAfter: entry.requests[0].Add(m.window).Sub(now),
		}, nil
	}

	entry.requests = append(entry.requests, now)
	return Decision{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - len(entry.requests),
	}, nil
}

// Reset implements RateLimiter.
func (m *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Stop stops the cleanup goroutine.
func (m *MemoryRateLimiter) Stop() {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
}

func (m *MemoryRateLimiter) cleanupExpiredEntries() {
	ticker := m.clock.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			m.performCleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// performCleanup drops keys idle for more than two windows.
func (m *MemoryRateLimiter) performCleanup() {
	threshold := m.clock.Now().Add(-2 * m.window)

	m.store.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		idle := entry.lastCheck.Before(threshold)
		entry.mu.Unlock()

		if idle {
			m.store.Delete(key)
		}
		return true
	})
}

// filterExpiredRequests drops timestamps at or before cutoff. requests is
// sorted, so everything before the first live entry is expired.
func filterExpiredRequests(requests []time.Time, cutoff time.Time) []time.Time {
	for i, t := range requests {
		if t.After(cutoff) {
			return requests[i:]
		}
	}
	return requests[:0]
}

// ============================================================================
// Redis Rate Limiter Implementation
// ============================================================================

// RedisRateLimiter implements a sliding window with one sorted set per key,
// so several instances share one quota.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	clock  clock.PassiveClock
}

// RedisOption configures a RedisRateLimiter.
type RedisOption func(*RedisRateLimiter)

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRateLimiter) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisClock sets the clock used for window scores.
func WithRedisClock(clk clock.PassiveClock) RedisOption {
	return func(r *RedisRateLimiter) {
		if clk != nil {
			r.clock = clk
		}
	}
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration, opts ...RedisOption) *RedisRateLimiter {
	r := &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// slidingWindowScript trims the window, counts it and records the request
// only when it fits, in one atomic step.
//
//	KEYS[1] window key
//	ARGV    now score, window start score, limit, member, window ms
//	returns {allowed, count, oldest score}
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return {1, count + 1, ''}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, count, oldest[2] or ''}
`)

// Allow implements RateLimiter.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.clock.Now()
	windowMS := r.window.Milliseconds()
	if windowMS < 1 {
		windowMS = 1
	}

	res, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + key},
		strconv.FormatInt(now.UnixNano(), 10),
		strconv.FormatInt(now.Add(-r.window).UnixNano(), 10),
		r.limit,
		ulid.Make().String(),
		windowMS,
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis script error: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis script returned %d values", len(res))
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	if allowed == 1 {
		return Decision{
			Allowed:   true,
			Limit:     r.limit,
			Remaining: r.limit - int(count),
		}, nil
	}

	retryAfter := r.window
	if oldest, _ := res[2].(string); oldest != "" {
		if score, err := strconv.ParseFloat(oldest, 64); err == nil {
			retryAfter = time.Unix(0, int64(score)).Add(r.window).Sub(now)
		}
	}
	return Decision{Limit: r.limit, RetryAfter: retryAfter}, nil
}

// Reset implements RateLimiter.
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
