package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/hotel-web/internal/http/response"
	"github.com/diagnosis/hotel-web/pkg/logger"
)

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	KeyFunc  func(r *http.Request) []string // Keys counted for a request
}

// RateCounter counts hits on key within a fixed window and returns the
// count including this hit.
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
}

// RateLimit rejects requests once any of their keys passed cfg.Requests in
// the current window. Counter errors let the request through.
func RateLimit(counter RateCounter, cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, key := range keyFunc(r) {
				count, err := counter.Hit(r.Context(), hashKey("rl", key), cfg.Window)
				if err != nil {
					logger.WarnContext(r.Context(), "Rate limit check failed", "error", err)
					continue
				}
				if count > cfg.Requests {
					w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
					response.TooManyRequests(w, "Too many attempts. Please try again later.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hashKey(prefix, key string) string {
	return fmt.Sprintf("%s:%x", prefix, sha256.Sum256([]byte(key)))
}

// ClientIPKey counts by the caller's address.
func ClientIPKey(r *http.Request) []string {
	if ip := clientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type RedisRateCounter struct {
	client *redis.Client
}

func NewRedisRateCounter(client *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{client: client}
}

// Hit starts the window on the first hit; later hits leave the expiry alone.
func (c *RedisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return int(count), nil
}

type rateWindow struct {
	count int
	start time.Time
}

type MemoryRateCounter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
	now     func() time.Time
}

func NewMemoryRateCounter() *MemoryRateCounter {
	return &MemoryRateCounter{windows: make(map[string]rateWindow), now: time.Now}
}

func (c *MemoryRateCounter) Hit(_ context.Context, key string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = rateWindow{start: now}
	}
	w.count++
	c.windows[key] = w
	return w.count, nil
}
