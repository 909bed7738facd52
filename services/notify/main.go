package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/diagnosis/hotel-web/pkg/config"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/logger"
	mw "github.com/diagnosis/hotel-web/pkg/middleware"
	"github.com/diagnosis/hotel-web/services/notify/internal/audit"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	natsURL := cfg.NATS.URL
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	bus, err := events.NewNATSEventBus(natsURL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "url", natsURL, "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	trail := audit.New(500)
	for _, subject := range events.Subjects {
		if err := bus.Subscribe(subject, trail.Record); err != nil {
			logger.Error("Failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Mount("/", trail.Routes())

	port := os.Getenv("NOTIFY_PORT")
	if port == "" {
		port = "8086"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", port, "subjects", len(events.Subjects))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
