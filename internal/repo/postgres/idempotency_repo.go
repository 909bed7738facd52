package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const idempotencySchema = `
CREATE TABLE IF NOT EXISTS web_idempotency (
	key_hash   TEXT PRIMARY KEY,
	response   TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// IdempotencyRepo stores replayable gateway responses by hashed
// Idempotency-Key. Keys arrive already hashed from the middleware.
type IdempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

func (r *IdempotencyRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := r.pool.Exec(ctx, idempotencySchema); err != nil {
		return fmt.Errorf("failed to create web_idempotency: %w", err)
	}
	return nil
}

// Get returns "" without error when the key is unknown or expired.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var stored string
	query := `SELECT response FROM web_idempotency WHERE key_hash = $1 AND expires_at > now()`
	err := r.pool.QueryRow(ctx, query, key).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stored, nil
}

// Set keeps the first response recorded for a key.
func (r *IdempotencyRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO web_idempotency (key_hash, response, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, key, value, time.Now().Add(ttl))
	return err
}

func (r *IdempotencyRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `DELETE FROM web_idempotency WHERE expires_at < now()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
