package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"foxshelf/internal/util"
	"foxshelf/pkg/domain"
)

const redisKeyPrefix = "foxshelf:session:"

// RedisStore keeps sessions in Redis with TTL, so a restart of the API
// process does not sign the author out mid-session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(addr, password string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// NewSession writes a token -> identity mapping with TTL.
func (s *RedisStore) NewSession(id domain.Identity) (string, error) {
	payload, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	token := util.NewID()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, redisKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// GetIdentity resolves a token to the held identity.
func (s *RedisStore) GetIdentity(token string) (domain.Identity, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, err
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, false, err
	}
	return id, true, nil
}

// DeleteSession removes a token mapping.
func (s *RedisStore) DeleteSession(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
