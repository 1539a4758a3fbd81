package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis with native key expiry, so any number of
// server processes can share them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects and pings before returning.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func (s *RedisStore) Save(ctx context.Context, sid string, id Identity, ttl time.Duration) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sid, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sid string) (Identity, error) {
	b, err := s.client.Get(ctx, redisKeyPrefix+sid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Anonymous, common.ErrorNotFound
		}
		return Anonymous, fmt.Errorf("redis error: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return Anonymous, fmt.Errorf("decode session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
