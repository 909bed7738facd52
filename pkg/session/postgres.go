package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/hotel-web/pkg/logger"
)

// Schema for PostgresKeyspace. Applied by EnsureSchema at gateway start.
const Schema = `
CREATE TABLE IF NOT EXISTS web_sessions (
	session_id TEXT PRIMARY KEY,
	jwt_token  TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_role  TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

type PostgresKeyspace struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresKeyspace(pool *pgxpool.Pool, ttl time.Duration) *PostgresKeyspace {
	return &PostgresKeyspace{pool: pool, ttl: ttl}
}

func (k *PostgresKeyspace) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := k.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create web_sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes rows past their expiry and reports how many went.
func (k *PostgresKeyspace) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM web_sessions WHERE expires_at < now()`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := k.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (k *PostgresKeyspace) For(sessionID string) Store {
	return &PostgresStore{pool: k.pool, id: sessionID, ttl: k.ttl}
}

type PostgresStore struct {
	pool *pgxpool.Pool
	id   string
	ttl  time.Duration
}

func (p *PostgresStore) Save(ctx context.Context, s Session) error {
	s, err := normalize(s)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO web_sessions (session_id, jwt_token, user_id, user_role, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			jwt_token = EXCLUDED.jwt_token,
			user_id = EXCLUDED.user_id,
			user_role = EXCLUDED.user_role,
			expires_at = EXCLUDED.expires_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ttl := p.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := p.pool.Exec(ctx, q, p.id, s.Token, s.UserID, string(s.Role), time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context) (Session, bool) {
	const q = `
		SELECT jwt_token, user_id, user_role
		FROM web_sessions
		WHERE session_id = $1 AND expires_at > now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var token, userID, role string
	err := p.pool.QueryRow(ctx, q, p.id).Scan(&token, &userID, &role)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.WarnContext(ctx, "Session lookup failed", "error", err)
		}
		return Session{}, false
	}
	return fromFields(token, userID, role)
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	const q = `DELETE FROM web_sessions WHERE session_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := p.pool.Exec(ctx, q, p.id); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
