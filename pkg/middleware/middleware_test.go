package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func TestRequestID_PropagatesHeader(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("expected echoed id, got %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("expected generated uuid, got %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := Health(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	stores := map[string]IdempotencyStore{
		"memory": NewMemoryIdempotencyStore(),
		"redis":  NewRedisIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			var calls int32
			r := chi.NewRouter()
			r.Use(Idempotency(store, time.Hour, func(*http.Request) string { return "sid" }))
			r.Post("/booking/{id}", func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
			})

			send := func(key string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/booking/1", nil)
				if key != "" {
					req.Header.Set("Idempotency-Key", key)
				}
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, req)
				return rec
			}

			first := send("k1")
			second := send("k1")
			if atomic.LoadInt32(&calls) != 1 {
				t.Fatalf("expected one handler call, got %d", calls)
			}
			if second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
				t.Errorf("expected replayed body, got %q", second.Body.String())
			}
			if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
				t.Errorf("replay must keep the original status, got %d then %d", first.Code, second.Code)
			}

			send("")
			send("")
			if atomic.LoadInt32(&calls) != 3 {
				t.Errorf("requests without a key are never cached, got %d calls", calls)
			}
		})
	}
}

func TestIdempotency_ConcurrentDuplicatesRunOnce(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(NewMemoryIdempotencyStore(), time.Hour, func(*http.Request) string { return "sid" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
			}
			<-release
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"booked":true}`))
		}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/booking/3", nil)
		req.Header.Set("Idempotency-Key", "double-click")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	results := make(chan *httptest.ResponseRecorder, 2)
	go func() { results <- send() }()
	<-entered
	go func() { results <- send() }()
	// give the duplicate time to join the running request
	time.Sleep(50 * time.Millisecond)
	close(release)

	a, b := <-results, <-results
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one handler call, got %d", n)
	}
	for _, rec := range []*httptest.ResponseRecorder{a, b} {
		if rec.Code != http.StatusCreated || rec.Body.String() != `{"booked":true}` {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
	}
	if a.Header().Get("Idempotent-Replayed") == b.Header().Get("Idempotent-Replayed") {
		t.Error("exactly one of the two responses should be a replay")
	}
}

func TestIdempotency_IgnoresUnreadableEntries(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	var calls int32
	h := Idempotency(store, time.Hour, func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusCreated)
		}))

	req := httptest.NewRequest(http.MethodPost, "/booking/3", nil)
	req.Header.Set("Idempotency-Key", "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for k := range store.entries {
		store.entries[k] = memoryEntry{value: "not json", expires: time.Now().Add(time.Hour)}
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if atomic.LoadInt32(&calls) != 2 || rec.Header().Get("Idempotent-Replayed") != "" {
		t.Errorf("an unreadable entry must not be replayed, calls=%d", calls)
	}
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	counters := map[string]RateCounter{
		"memory": NewMemoryRateCounter(),
		"redis":  NewRedisRateCounter(client),
	}
	for name, counter := range counters {
		t.Run(name, func(t *testing.T) {
			h := RateLimit(counter, RateLimitConfig{Requests: 2, Window: time.Minute})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			send := func(ip string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
				req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				return rec
			}

			for i := 0; i < 2; i++ {
				if rec := send("203.0.113.7"); rec.Code != http.StatusOK {
					t.Fatalf("hit %d: got %d", i+1, rec.Code)
				}
			}
			rec := send("203.0.113.7")
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") != "60" {
				t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
			}
			if rec := send("198.51.100.2"); rec.Code != http.StatusOK {
				t.Errorf("other client throttled: %d", rec.Code)
			}
		})
	}
}

func TestMemoryRateCounter_WindowResets(t *testing.T) {
	c := NewMemoryRateCounter()
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		if n, _ := c.Hit(context.Background(), "k", time.Minute); n != i {
			t.Fatalf("hit %d counted %d", i, n)
		}
	}
	now = now.Add(time.Minute)
	if n, _ := c.Hit(context.Background(), "k", time.Minute); n != 1 {
		t.Errorf("expected a fresh window, got %d", n)
	}
}

func TestClientIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := ClientIPKey(req); len(got) != 1 || got[0] != "ip:192.0.2.1" {
		t.Errorf("remote addr key = %v", got)
	}
	req.Header.Set("X-Real-IP", " 192.0.2.9 ")
	if got := ClientIPKey(req); got[0] != "ip:192.0.2.9" {
		t.Errorf("real ip key = %v", got)
	}
}
