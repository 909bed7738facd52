package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const rateLimitSchema = `
CREATE TABLE IF NOT EXISTS web_rate_limits (
	key          TEXT PRIMARY KEY,
	count        INTEGER NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
)`

// RateLimitRepo counts attempts per hashed key in fixed windows.
type RateLimitRepo struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepo(pool *pgxpool.Pool) *RateLimitRepo {
	return &RateLimitRepo{pool: pool}
}

func (r *RateLimitRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := r.pool.Exec(ctx, rateLimitSchema); err != nil {
		return fmt.Errorf("failed to create web_rate_limits: %w", err)
	}
	return nil
}

// Hit atomically opens a new window or bumps the current one.
func (r *RateLimitRepo) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now()
	query := `
		INSERT INTO web_rate_limits (key, count, window_start, expires_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN web_rate_limits.expires_at <= $2 THEN 1
				ELSE web_rate_limits.count + 1
			END,
			window_start = CASE
				WHEN web_rate_limits.expires_at <= $2 THEN $2
				ELSE web_rate_limits.window_start
			END,
			expires_at = CASE
				WHEN web_rate_limits.expires_at <= $2 THEN $3
				ELSE web_rate_limits.expires_at
			END
		RETURNING count`

	var count int
	if err := r.pool.QueryRow(ctx, query, key, now, now.Add(window)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RateLimitRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM web_rate_limits WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
