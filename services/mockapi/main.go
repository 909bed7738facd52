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
	"github.com/diagnosis/hotel-web/pkg/logger"
	mw "github.com/diagnosis/hotel-web/pkg/middleware"
	"github.com/diagnosis/hotel-web/pkg/mockapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	backend := mockapi.New(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err := backend.Seed(); err != nil {
		logger.Error("Failed to seed stub backend", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("mockapi"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Mount("/", backend.Routes())

	port := os.Getenv("MOCKAPI_PORT")
	if port == "" {
		port = "9091"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down stub backend...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Stub backend shutdown error", "error", err)
		}
	}()

	logger.Info("Starting stub hotel backend", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Stub backend server error", "error", err)
		os.Exit(1)
	}
}
