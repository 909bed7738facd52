package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/hotel-web/pkg/logger"
)

const redisKeyPrefix = "hotel:session:"

type RedisKeyspace struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisKeyspace(client *redis.Client, ttl time.Duration) *RedisKeyspace {
	return &RedisKeyspace{client: client, ttl: ttl}
}

func (k *RedisKeyspace) For(sessionID string) Store {
	return &RedisStore{client: k.client, key: redisKeyPrefix + sessionID, ttl: k.ttl}
}

// RedisStore keeps one session in a hash; the three fields go out in a
// single MULTI so readers never see a partial record.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	s, err := normalize(s)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, map[string]any{
			KeyToken:  s.Token,
			KeyUserID: s.UserID,
			KeyRole:   string(s.Role),
		})
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context) (Session, bool) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		logger.WarnContext(ctx, "Session lookup failed", "error", err)
		return Session{}, false
	}
	if len(fields) == 0 {
		return Session{}, false
	}
	return fromFields(fields[KeyToken], fields[KeyUserID], fields[KeyRole])
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
