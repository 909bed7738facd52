package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/hotel-web/internal/repo/postgres"
	"github.com/diagnosis/hotel-web/pkg/config"
	"github.com/diagnosis/hotel-web/pkg/database"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
	mw "github.com/diagnosis/hotel-web/pkg/middleware"
	"github.com/diagnosis/hotel-web/pkg/session"
	"github.com/diagnosis/hotel-web/services/web/internal/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openSessionBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open session backend", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer stores.cleanup()

	publisher, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		// audit events are best effort; the gateway serves without them
		logger.Warn("Event publishing disabled", "error", err)
		publisher = events.Nop{}
	}
	defer publisher.Close()

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	api := hotelapi.New(cfg.API.BaseURL, nil,
		hotelapi.WithHTTPClient(httpClient),
		hotelapi.WithBreaker(hotelapi.NewBreaker("hotel-api", cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout)),
	)

	h := handlers.New(api, stores.sessions, publisher, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	})

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("web"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	authLimit := mw.RateLimit(stores.attempts, mw.RateLimitConfig{
		Requests: cfg.Limits.AuthAttempts,
		Window:   cfg.Limits.AuthWindow,
		KeyFunc:  mw.ClientIPKey,
	})
	r.Mount("/", h.Routes(stores.idempotency, authLimit))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down web gateway...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Web gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting web gateway", "port", cfg.Server.Port, "api", cfg.API.BaseURL, "sessions", cfg.Session.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Web gateway server error", "error", err)
		os.Exit(1)
	}
}

// backendStores is the per-deployment state the gateway keeps: browser
// sessions, replayable booking responses and login attempt counters.
type backendStores struct {
	sessions    session.Keyspace
	idempotency mw.IdempotencyStore
	attempts    mw.RateCounter
	cleanup     func()
}

// openSessionBackend puts all gateway state on the configured backend.
func openSessionBackend(ctx context.Context, cfg *config.Config) (*backendStores, error) {
	switch cfg.Session.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, err
		}
		return &backendStores{
			sessions:    session.NewRedisKeyspace(client, cfg.Session.TTL),
			idempotency: mw.NewRedisIdempotencyStore(client),
			attempts:    mw.NewRedisRateCounter(client),
			cleanup:     func() { client.Close() },
		}, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		keyspace := session.NewPostgresKeyspace(pool, cfg.Session.TTL)
		idem := postgres.NewIdempotencyRepo(pool)
		limits := postgres.NewRateLimitRepo(pool)
		for _, ensure := range []func(context.Context) error{keyspace.EnsureSchema, idem.EnsureSchema, limits.EnsureSchema} {
			if err := ensure(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		go sweepExpired(ctx, keyspace, idem, limits)
		return &backendStores{
			sessions:    keyspace,
			idempotency: idem,
			attempts:    limits,
			cleanup:     pool.Close,
		}, nil

	default:
		logger.Info("Using in-memory sessions; they do not survive a restart")
		return &backendStores{
			sessions:    session.NewMemoryKeyspace(),
			idempotency: mw.NewMemoryIdempotencyStore(),
			attempts:    mw.NewMemoryRateCounter(),
			cleanup:     func() {},
		}, nil
	}
}

func sweepExpired(ctx context.Context, keyspace *session.PostgresKeyspace, idem *postgres.IdempotencyRepo, limits *postgres.RateLimitRepo) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := keyspace.DeleteExpired(ctx); err != nil {
				logger.Warn("Session sweep failed", "error", err)
			} else if n > 0 {
				logger.Debug("Expired sessions removed", "count", n)
			}
			if _, err := idem.CleanupExpired(ctx); err != nil {
				logger.Warn("Idempotency sweep failed", "error", err)
			}
			if _, err := limits.CleanupExpired(ctx); err != nil {
				logger.Warn("Rate limit sweep failed", "error", err)
			}
		}
	}
}
