package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/hotel-web/pkg/config"
)

// Connect opens a pool and pings it so a bad DATABASE_URL fails at startup.
func Connect(ctx context.Context, dc config.DatabaseConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dc.URL)
	if err != nil {
		return nil, err
	}

	if dc.MinConns > 0 {
		cfg.MinConns = int32(dc.MinConns)
	}
	if dc.MaxConns > 0 {
		cfg.MaxConns = int32(dc.MaxConns)
	}
	if dc.MaxLifetime > 0 {
		cfg.MaxConnLifetime = dc.MaxLifetime
	}
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
