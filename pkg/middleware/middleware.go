package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/diagnosis/hotel-web/pkg/logger"
)

// RequestID adds a unique request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging logs HTTP requests with structured logging
func Logging(next http.Handler) http.Handler {
	return middleware.RequestLogger(&StructuredLogger{})(next)
}

type StructuredLogger struct{}

func (l *StructuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &StructuredLogEntry{
		request: r,
		start:   time.Now(),
	}
}

type StructuredLogEntry struct {
	request *http.Request
	start   time.Time
}

func (l *StructuredLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	logger.InfoContext(l.request.Context(), "HTTP request completed",
		"method", l.request.Method,
		"path", l.request.URL.Path,
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
		"user_agent", l.request.UserAgent(),
		"remote_addr", l.request.RemoteAddr,
	)
}

func (l *StructuredLogEntry) Panic(v interface{}, stack []byte) {
	logger.ErrorContext(l.request.Context(), "HTTP request panic",
		"panic", v,
		"stack", string(stack),
		"method", l.request.Method,
		"path", l.request.URL.Path,
	)
}

// Recover turns a handler panic into a 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(r.Context(), "Panic recovered", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ServiceName adds service name to context for logging
func ServiceName(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), logger.ServiceKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Health provides health check endpoint
func Health(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdempotencyStore caches successful POST responses by Idempotency-Key so a
// double-submitted booking form books once.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// cachedResponse is what an IdempotencyStore holds for a key.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the cached response for a repeated Idempotency-Key
// with its original status. scope namespaces keys, typically by browser
// session. Duplicates arriving while the first is still running wait for it
// and replay its response; this holds within one process only.
func Idempotency(store IdempotencyStore, ttl time.Duration, scope func(*http.Request) string) func(http.Handler) http.Handler {
	var inflight singleflight.Group
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Hash the key for privacy
			hasher := sha256.New()
			hasher.Write([]byte(scope(r) + "|" + r.URL.Path + "|" + key))
			hashedKey := fmt.Sprintf("idempotency:%x", hasher.Sum(nil))

			if cached, ok := lookupResponse(r.Context(), store, hashedKey); ok {
				replay(w, r, cached)
				return
			}

			leader := false
			v, _, _ := inflight.Do(hashedKey, func() (interface{}, error) {
				leader = true
				recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
				next.ServeHTTP(recorder, r)

				res := cachedResponse{Status: recorder.statusCode, Body: string(recorder.body)}
				if res.Status >= 200 && res.Status < 300 {
					if data, err := json.Marshal(res); err != nil {
						logger.WarnContext(r.Context(), "Failed to encode idempotent response", "error", err)
					} else if err := store.Set(r.Context(), hashedKey, string(data), ttl); err != nil {
						logger.WarnContext(r.Context(), "Failed to cache idempotent response", "error", err)
					}
				}
				return res, nil
			})
			if !leader {
				replay(w, r, v.(cachedResponse))
			}
		})
	}
}

func lookupResponse(ctx context.Context, store IdempotencyStore, key string) (cachedResponse, bool) {
	existing, err := store.Get(ctx, key)
	if err != nil || existing == "" {
		return cachedResponse{}, false
	}
	var cached cachedResponse
	if err := json.Unmarshal([]byte(existing), &cached); err != nil || cached.Status == 0 {
		logger.WarnContext(ctx, "Ignoring unreadable idempotent response", "error", err)
		return cachedResponse{}, false
	}
	return cached, true
}

func replay(w http.ResponseWriter, r *http.Request, cached cachedResponse) {
	logger.DebugContext(r.Context(), "Replaying idempotent response", "path", r.URL.Path, "status", cached.Status)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.Status)
	w.Write([]byte(cached.Body))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

type memoryEntry struct {
	value   string
	expires time.Time
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(s.entries, key)
		return "", nil
	}
	return e.value, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}
